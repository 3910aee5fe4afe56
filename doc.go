// Package revealbridge decodes 3D scene data and hands it across a host
// boundary without per-element conversion on the far side.
//
// Two input formats are supported: i3df sector files, whose child sectors
// depend on an attribute table carried by the root sector, and OpenCTM
// triangle meshes. Decoded data is flattened into little-endian buffers and
// packaged as typed values that can be lowered into WebAssembly guest memory
// using the canonical ABI layout.
//
// # Architecture Overview
//
//	revealbridge/        Root package with the Memory and Allocator interfaces
//	├── blob/            Host blob intake into owned, seekable readers
//	├── alloc/           Process-wide buffer allocation strategy
//	├── ctm/             OpenCTM codec (RAW and MG1)
//	├── i3df/            i3df sector codec and scene linking
//	├── renderables/     Conversion of sectors into draw-ready collections
//	├── mesh/            Mesh decode and flatten
//	├── sector/          Root and child sector decode with handles
//	├── scene/           Whole-file decode
//	├── boundary/        Packaging into typed values, WIT schema and lowering
//	├── resource/        Handle tables for values that stay on the host
//	├── wasmhost/        wazero host module exposing the decoders to guests
//	├── config/          YAML configuration and logger setup
//	├── errors/          Structured error types
//	└── cmd/             revealctl CLI and the js/wasm browser build
//
// # Quick Start
//
// Decode a mesh:
//
//	out, err := mesh.Decode(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vertices := mesh.Vertices(out.Body)
//
// Decode a root sector and one of its children:
//
//	root, err := sector.DecodeRoot(rootBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	child, err := sector.DecodeChild(root, childBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	collections := sector.Convert(child)
//
// Expose the decoders to a guest module:
//
//	host, err := wasmhost.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := host.Instantiate(ctx, rt); err != nil {
//	    log.Fatal(err)
//	}
package revealbridge
