package permission

// Mask64 is a set of permission bits. Bit 63 is the root bit.
type Mask64 uint64

const rootBit = 63

// Has reports whether bit is set, or whether the root bit is set when
// rootReserved is true.
func (m Mask64) Has(bit int, rootReserved bool) bool {
	if bit < 0 || bit >= 64 {
		return false
	}

	if rootReserved && m&(1<<rootBit) != 0 {
		return true
	}

	return m&(1<<bit) != 0
}

func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= 1 << bit
}

func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= 1 << bit
}

// IsRoot reports whether the root bit is set.
func (m Mask64) IsRoot() bool {
	return m&(1<<rootBit) != 0
}

func (m Mask64) Raw() uint64 {
	return uint64(m)
}
