package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// readInput reads path, decompressing it when compressed is set or the name
// ends in .zst. A positive limit caps the decompressed size.
func readInput(path string, compressed bool, limit int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed || strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return readLimited(r, path, limit)
}

func readLimited(r io.Reader, name string, limit int) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, int64(limit)+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if limit > 0 && buf.Len() > limit {
		return nil, fmt.Errorf("%s exceeds the %d byte input limit", name, limit)
	}
	return buf.Bytes(), nil
}
