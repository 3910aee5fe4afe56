package boundary

import (
	"encoding/binary"
	"fmt"
)

type testMemory struct {
	data []byte
}

func newTestMemory(size int) *testMemory {
	return &testMemory{data: make([]byte, size)}
}

func (m *testMemory) bounds(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return fmt.Errorf("access [%d, %d) outside %d bytes", offset, uint64(offset)+uint64(length), len(m.data))
	}
	return nil
}

func (m *testMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.bounds(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *testMemory) Write(offset uint32, data []byte) error {
	if err := m.bounds(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *testMemory) ReadU8(offset uint32) (uint8, error) {
	if err := m.bounds(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *testMemory) ReadU16(offset uint32) (uint16, error) {
	if err := m.bounds(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *testMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *testMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.bounds(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *testMemory) WriteU8(offset uint32, value uint8) error {
	if err := m.bounds(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *testMemory) WriteU16(offset uint32, value uint16) error {
	if err := m.bounds(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

func (m *testMemory) WriteU32(offset uint32, value uint32) error {
	if err := m.bounds(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *testMemory) WriteU64(offset uint32, value uint64) error {
	if err := m.bounds(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

type bumpAllocator struct {
	offset uint32
	limit  uint32 // fail once offset would pass limit, 0 for none
	live   int
	frees  int
}

func (a *bumpAllocator) Alloc(size, align uint32) (uint32, error) {
	ptr := alignTo(a.offset, align)
	if a.limit > 0 && ptr+size > a.limit {
		return 0, fmt.Errorf("out of guest memory")
	}
	a.offset = ptr + size
	a.live++
	return ptr, nil
}

func (a *bumpAllocator) Free(ptr, size, align uint32) {
	a.live--
	a.frees++
}
