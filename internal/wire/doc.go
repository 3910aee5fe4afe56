// Package wire provides position-tracking readers and writers for the
// fixed-width little-endian layouts used by the i3df and OpenCTM codecs,
// plus the LEB128 forms needed to assemble WebAssembly modules in tests.
package wire
