// Package ctm decodes OpenCTM compressed triangle meshes.
//
// The RAW and MG1 methods are supported. MG1 arrays are LZMA packed and byte
// plane interleaved, and its triangle indices are delta coded. Files using MG2
// fail with an unsupported error.
//
//	m, err := ctm.Parse(r)
//	if err != nil {
//		return err
//	}
//	fmt.Println(len(m.Vertices), len(m.Indices)/3)
package ctm
