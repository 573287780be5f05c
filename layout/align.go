package layout

// AlignedSize rounds raw up to the next multiple of modulus.
// modulus must be a power of two.
func AlignedSize(raw, modulus uint32) uint32 {
	return (raw + modulus - 1) &^ (modulus - 1)
}

// AlignedSizeMask is ZEND_MM_ALIGNED_SIZE evaluated with the allocator's
// published ZEND_MM_ALIGNMENT and ZEND_MM_ALIGNMENT_MASK, used verbatim.
func AlignedSizeMask(raw, alignment uint32, mask int64) uint32 {
	return uint32((int64(raw) + int64(alignment) - 1) & mask)
}

// MaskFor returns the ZEND_MM_ALIGNMENT_MASK matching alignment.
func MaskFor(alignment uint32) int64 {
	return ^int64(alignment - 1)
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// AlignTo rounds offset up to align; align 0 leaves offset unchanged.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
