package sshcrypto

// X25519 per RFC 7748 §5: scalar clamping, Montgomery ladder over projective
// coordinates, and u-coordinate decode/encode (spec.md §4.4).

const (
	X25519KeySize = 32
)

// the Montgomery curve constant a24 = (486662-2)/4 = 121665
var feA24 = fe{0xdb41, 1}

// ClampScalar applies the RFC 7748 clamp to a 32-byte scalar in place:
// clear the low 3 bits of byte 0, clear the high bit of byte 31, set bit 6
// of byte 31.
func ClampScalar(scalar *[32]byte) {
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
}

// X25519 computes the Montgomery ladder scalar multiplication scalar*u,
// where scalar is clamped internally (the caller's buffer is not mutated).
// It returns the weak-point error described in spec.md §4.4/§3 when the
// result is the all-zero point.
func X25519(scalar, u [32]byte) (out [32]byte, err error) {
	ClampScalar(&scalar)

	x1 := feFromBytes(&u)
	var x2, z2, x3, z3 fe
	x2[0] = 1
	x3 = x1
	z3[0] = 1

	var swap int64
	for t := 254; t >= 0; t-- {
		bit := int64((scalar[t>>3] >> uint(t&7)) & 1)
		swap ^= bit
		feCswap(&x2, &x3, swap)
		feCswap(&z2, &z3, swap)
		swap = bit

		a := feAdd(x2, z2)
		b := feSub(x2, z2)
		c := feAdd(x3, z3)
		d := feSub(x3, z3)
		da := feMul(d, a)
		cb := feMul(c, b)

		x3 = feSquare(feAdd(da, cb))
		z3 = feMul(x1, feSquare(feSub(da, cb)))

		aa := feSquare(a)
		bb := feSquare(b)
		x2 = feMul(aa, bb)

		e := feSub(aa, bb)
		z2 = feMul(e, feAdd(aa, feMul(feA24, e)))
	}
	feCswap(&x2, &x3, swap)
	feCswap(&z2, &z3, swap)

	result := feMul(x2, feInvert(z2))
	out = feBytes(result)

	zero := true
	for _, b := range out {
		if b != 0 {
			zero = false
			break
		}
	}
	if zero {
		err = ErrWeakPoint
	}
	return out, err
}

// X25519Basepoint is the Curve25519 base point u=9.
var X25519Basepoint = [32]byte{9}

// ScalarBaseMult computes scalar*9, the ephemeral public key for a freshly
// generated private scalar.
func ScalarBaseMult(scalar [32]byte) ([32]byte, error) {
	return X25519(scalar, X25519Basepoint)
}
