// Package sector decodes i3df sectors in dependency order.
//
// Only the root sector carries the attribute table that geometry indices
// refer to, so a child can only be decoded against a root handle:
//
//	root, err := sector.DecodeRoot(rootBytes)
//	if err != nil {
//		return err
//	}
//	child, err := sector.DecodeChild(root, childBytes)
//
// A child decode borrows the root's table for the duration of the call and
// keeps no reference to the root afterwards. Children cannot parent further
// children; decoding against a child handle fails with a missing_attributes
// error without running the codec.
package sector
