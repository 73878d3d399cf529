package alloctest

// Fill sets every byte of p to v.
func Fill(p []byte, v byte) {
	for i := range p {
		p[i] = v
	}
}

// Pattern writes a position-dependent pattern that HasPattern recognizes
// in any prefix.
func Pattern(p []byte) {
	for i := range p {
		p[i] = patternAt(i)
	}
}

// HasPattern reports whether p still holds what Pattern wrote.
func HasPattern(p []byte) bool {
	for i := range p {
		if p[i] != patternAt(i) {
			return false
		}
	}
	return true
}

// IsZero reports whether every byte of p is zero.
func IsZero(p []byte) bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

func patternAt(i int) byte {
	return byte(i*7 + 1)
}
