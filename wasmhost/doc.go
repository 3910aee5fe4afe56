// Package wasmhost exposes the decoders to WebAssembly guests.
//
// Host functions live in one import module, "reveal:decode" by default:
//
//	decode-mesh(ptr, len, retptr) -> status
//	decode-root-sector(ptr, len, retptr) -> status
//	decode-child-sector(root, ptr, len, retptr) -> status
//	convert-sector(handle, retptr) -> status
//	decode-scene(ptr, len, retptr) -> status
//	drop-sector(handle) -> status
//	last-error(retptr) -> status
//
// Input blobs are read from the caller's exported memory. Results are
// lowered with the canonical ABI through the guest's cabi_realloc and the
// address of the result record, or a sector handle, is stored as a u32 at
// retptr. On failure the status says which class of error occurred and
// last-error yields it as a record { message: string, status: u32 }.
//
// Sectors stay on the host. Guests hold handle tokens and release them with
// drop-sector.
package wasmhost
