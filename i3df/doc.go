// Package i3df decodes sectors of the i3df scene format.
//
// A file is a sequence of self-delimited sectors. The first one, the root,
// carries an AttributeTable of uncompressed value arrays. Geometry in every
// sector refers into that table through Fibonacci coded indices, so child
// sectors can only be decoded once the root's table is known:
//
//	root, err := i3df.ParseRootSector(rootReader)
//	if err != nil {
//		return err
//	}
//	child, err := i3df.ParseSector(root.Header.Attributes, childReader)
//
// ParseScene reads a whole file and links sectors by parent id.
package i3df
