package internal

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b are equal without leaking, via
// timing, the position of the first differing byte. Lengths are compared in
// constant time as well; only the length of the longer input is observable.
func ConstantTimeEqual(a, b string) bool {
	eqLen := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))

	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	pa := make([]byte, n)
	pb := make([]byte, n)
	copy(pa, a)
	copy(pb, b)

	return subtle.ConstantTimeCompare(pa, pb)&eqLen == 1
}
