// Package cellid implements a big-endian, fixed-width byte array
// interpreted as a bit-string identifying a cell in
// a multi-dimensional discretisation, used to enumerate cells in a
// space-filling-curve order during clustering.
//
// Grounded directly on stCellIdHighDimensional (original_source), including
// two deliberately preserved quirks: LeftShiftBit's byte-stride is computed
// from indexTest/8 with no adjustment for a fractional bit count, and
// RightShiftBit ignores any shift-amount parameter and always shifts by
// exactly one bit.
package cellid

// CellID is a big-endian array of n bytes: byte 0 is most significant
// (logical bit position n*8-1), byte n-1 is least significant (logical bit
// position 0).
type CellID struct {
	bytes []byte
}

// New allocates a zero-valued cell id of n bytes.
func New(n int) *CellID {
	return &CellID{bytes: make([]byte, n)}
}

// FromBytes wraps an existing big-endian byte slice (copied) as a CellID.
func FromBytes(b []byte) *CellID {
	out := make([]byte, len(b))
	copy(out, b)
	return &CellID{bytes: out}
}

// Bytes returns the underlying big-endian byte array. Callers must not
// retain a reference across further mutation of the CellID.
func (c *CellID) Bytes() []byte { return c.bytes }

// Len reports the number of bytes (n).
func (c *CellID) Len() int { return len(c.bytes) }

// Add adds k to the low-order byte, propagating into more significant
// bytes for as long as the byte being processed was already saturated
// (0xFF) before the add — faithfully replicating stCellIdHighDimensional's
// operator+=, which keeps adding k to every byte in the carry chain rather
// than carrying a single bit once saturation is detected.
func (c *CellID) Add(k byte) {
	i := len(c.bytes) - 1
	finished := false
	for i >= 0 && !finished {
		if c.bytes[i] < 0xFF {
			finished = true
		}
		c.bytes[i] += k
		i--
	}
}

// LeftShiftBit shifts a prefix of the array left by one bit, carrying the
// top bit of each byte into the bottom bit of the next-more-significant
// byte. indexTestBits selects how many of the least-significant bytes
// participate, using indexTestBits/8 as a whole-byte stride: when
// indexTestBits is not a multiple of 8, the extra fractional bits are
// silently ignored, exactly as the original does.
func (c *CellID) LeftShiftBit(indexTestBits int) {
	n := len(c.bytes)
	pos := n - indexTestBits/8 - 1
	if pos > 0 {
		pos--
	}
	if pos < 0 {
		pos = 0
	}
	addNow := false
	for i := n - 1; i >= pos; i-- {
		addNext := c.bytes[i] >= 0x80
		c.bytes[i] <<= 1 // top bit discarded on overflow, matching C++ unsigned char wraparound
		if addNow {
			c.bytes[i]++
		}
		addNow = addNext
	}
}

// RightShiftBit shifts the whole array right by one bit, carrying the
// bottom bit of each byte into the top bit of the next-less-significant
// byte. Any shift-amount argument elsewhere in the original is ignored in
// this overload; RightShiftBit always shifts by exactly one bit, per the
// spec's resolution of that ambiguity.
func (c *CellID) RightShiftBit() {
	addNow := false
	for i := 0; i < len(c.bytes); i++ {
		addNext := c.bytes[i]%2 == 1
		c.bytes[i] >>= 1
		if addNow {
			c.bytes[i] += 0x80
		}
		addNow = addNext
	}
}
