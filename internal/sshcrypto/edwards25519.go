package sshcrypto

// Extended-coordinate Edwards25519 point arithmetic (spec.md §4.5): points
// are held as (X,Y,Z,T) with x=X/Z, y=Y/Z, xy=T/Z, using the unified
// addition formulas for the twisted Edwards curve -x^2+y^2=1+d*x^2*y^2,
// which are correct for both general addition and doubling (point+itself).

type edPoint struct {
	X, Y, Z, T fe
}

func edIdentity() edPoint {
	return edPoint{X: feZeroVal, Y: feOneVal, Z: feOneVal, T: feZeroVal}
}

func edBasePoint() edPoint {
	return edPoint{X: feBaseX, Y: feBaseY, Z: feOneVal, T: feMul(feBaseX, feBaseY)}
}

// edAdd returns p+q using the unified formulas (also valid when p==q).
func edAdd(p, q edPoint) edPoint {
	a := feMul(feSub(p.Y, p.X), feSub(q.Y, q.X))
	b := feMul(feAdd(p.Y, p.X), feAdd(q.Y, q.X))
	c := feMul(feMul(p.T, q.T), feD2)
	d := feMul(p.Z, q.Z)
	d = feAdd(d, d)
	e := feSub(b, a)
	f := feSub(d, c)
	g := feAdd(d, c)
	h := feAdd(b, a)

	return edPoint{
		X: feMul(e, f),
		Y: feMul(h, g),
		Z: feMul(g, f),
		T: feMul(e, h),
	}
}

func edCswap(p, q *edPoint, swap int64) {
	feCswap(&p.X, &q.X, swap)
	feCswap(&p.Y, &q.Y, swap)
	feCswap(&p.Z, &q.Z, swap)
	feCswap(&p.T, &q.T, swap)
}

// edScalarMult computes scalar*base for an arbitrary base point via a
// conditional-swap double-and-add over the 256-bit scalar, mirroring the
// Montgomery ladder's constant-time shape (spec.md §9: "Ed25519 scalar
// arithmetic where signing material is touched" must be constant time).
func edScalarMult(scalar [32]byte, base edPoint) edPoint {
	p := edIdentity()
	q := base
	for i := 255; i >= 0; i-- {
		b := int64((scalar[i/8] >> uint(i&7)) & 1)
		edCswap(&p, &q, b)
		q = edAdd(q, p)
		p = edAdd(p, p)
		edCswap(&p, &q, b)
	}
	return p
}

func edScalarMultBase(scalar [32]byte) edPoint {
	return edScalarMult(scalar, edBasePoint())
}

// edEncode compresses a point to its 32-byte representation: the
// little-endian y-coordinate with the sign of x folded into the top bit.
func edEncode(p edPoint) [32]byte {
	zi := feInvert(p.Z)
	x := feMul(p.X, zi)
	y := feMul(p.Y, zi)
	out := feBytes(y)
	if feIsNegative(x) {
		out[31] |= 0x80
	}
	return out
}

// edDecode decompresses a 32-byte Edwards point, recovering x via the curve
// equation and an inverse square root. Not required by the server itself
// (spec.md §4.5: "Verification is NOT required by the server itself") but
// kept for symmetry and exercised by this package's own signature tests,
// which verify what they sign against a reference decode+check.
func edDecode(in [32]byte) (edPoint, bool) {
	signBit := in[31] >> 7
	in[31] &= 0x7f
	y := feFromBytes(&in)

	y2 := feSquare(y)
	u := feSub(y2, feOneVal)
	v := feAdd(feMul(feD, y2), feOneVal)

	// candidate x = u*v^3 * (u*v^7)^((p-5)/8)
	v3 := feMul(feSquare(v), v)
	v7 := feMul(feSquare(v3), v)
	x := feMul(feMul(u, v3), fePow22523(feMul(u, v7)))

	vx2 := feMul(v, feSquare(x))
	switch {
	case feEqual(vx2, u):
		// x already satisfies the curve equation
	case feEqual(vx2, feSub(feZeroVal, u)):
		x = feMul(x, feSqrtM1)
	default:
		return edPoint{}, false
	}

	if feIsNegative(x) != (signBit == 1) {
		x = feSub(feZeroVal, x)
	}

	return edPoint{X: x, Y: y, Z: feOneVal, T: feMul(x, y)}, true
}

func feIsZero(a fe) bool {
	b := feBytes(a)
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
