package i3df

import "errors"

// fibonacciMaxLength bounds the code length; any 53 bit value fits in 77 bits.
const fibonacciMaxLength = 77

var fibonacci = func() [fibonacciMaxLength + 1]uint64 {
	var f [fibonacciMaxLength + 1]uint64
	f[0], f[1] = 1, 2
	for i := 2; i <= fibonacciMaxLength; i++ {
		f[i] = f[i-1] + f[i-2]
	}
	return f
}()

var (
	ErrFibonacciExhausted    = errors.New("read past end of fibonacci stream")
	ErrFibonacciUnterminated = errors.New("fibonacci code has no termination bit")
)

// FibonacciDecoder reads Fibonacci coded unsigned integers, most significant
// bit of each byte first.
type FibonacciDecoder struct {
	data      []byte
	bit       int
	read      int
	numValues int
}

// NewFibonacciDecoder decodes up to numValues values from data.
func NewFibonacciDecoder(data []byte, numValues int) *FibonacciDecoder {
	return &FibonacciDecoder{data: data, numValues: numValues}
}

// Remaining returns how many values can still be read.
func (d *FibonacciDecoder) Remaining() int {
	return d.numValues - d.read
}

// Rewind restarts decoding from the first value.
func (d *FibonacciDecoder) Rewind() {
	d.bit = 0
	d.read = 0
}

// Next returns the next value. A code is the sum of fibonacci terms marked by
// its set bits, closed by a second consecutive set bit; the value is that sum
// minus one.
func (d *FibonacciDecoder) Next() (uint64, error) {
	if d.read >= d.numValues {
		return 0, ErrFibonacciExhausted
	}
	d.read++

	var sum uint64
	prev := false
	for i := 0; i <= fibonacciMaxLength; i++ {
		if d.bit >= len(d.data)*8 {
			return 0, ErrFibonacciExhausted
		}
		set := d.data[d.bit/8]&(1<<(7-uint(d.bit%8))) != 0
		d.bit++
		if set {
			if prev && i != 0 {
				return sum - 1, nil
			}
			sum += fibonacci[i]
		}
		prev = set
	}
	return 0, ErrFibonacciUnterminated
}

// FibonacciEncoder writes Fibonacci coded values into a bit stream.
type FibonacciEncoder struct {
	buf  []byte
	bits int
}

// Put appends v.
func (e *FibonacciEncoder) Put(v uint64) {
	n := v + 1
	top := 0
	for top+1 <= fibonacciMaxLength && fibonacci[top+1] <= n {
		top++
	}
	var code [fibonacciMaxLength + 2]bool
	for i := top; i >= 0; i-- {
		if fibonacci[i] <= n {
			code[i] = true
			n -= fibonacci[i]
		}
	}
	for i := 0; i <= top; i++ {
		e.putBit(code[i])
	}
	e.putBit(true)
}

func (e *FibonacciEncoder) putBit(set bool) {
	if e.bits%8 == 0 {
		e.buf = append(e.buf, 0)
	}
	if set {
		e.buf[e.bits/8] |= 1 << (7 - uint(e.bits%8))
	}
	e.bits++
}

// Bytes returns the encoded stream, padded with zero bits to a whole byte.
func (e *FibonacciEncoder) Bytes() []byte {
	return e.buf
}
