package sshcrypto

// Field arithmetic over GF(2^255-19), the prime field Curve25519 and Ed25519
// both live in (spec.md §4.4/§4.5). A field element is a radix-2^16, 16-limb
// redundant representation (fe), which keeps every limb inside a plain
// int64 with room to spare for the carry propagation below — the
// "implementation choice" spec.md §3 leaves open between a packed 32-byte
// value and a radix-limb form.

type fe [16]int64

// feFromBytes unpacks a little-endian 32-byte value into limb form. The top
// bit of the last byte is discarded, matching RFC 7748 §5 point decoding.
func feFromBytes(in *[32]byte) fe {
	var o fe
	for i := 0; i < 16; i++ {
		o[i] = int64(in[2*i]) | int64(in[2*i+1])<<8
	}
	o[15] &= 0x7fff
	return o
}

// feCarry propagates each limb's overflow into the next, wrapping limb 15's
// carry back into limb 0 multiplied by 38 (since 2^256 ≡ 38 mod 2^255-19).
func feCarry(o *fe) {
	var c int64
	for i := 0; i < 16; i++ {
		o[i] += 1 << 16
		c = o[i] >> 16
		next := (i + 1) % 16
		add := c - 1
		if i == 15 {
			add *= 38
		}
		o[next] += add
		o[i] -= c << 16
	}
}

// feCswap swaps p and q in constant time when swap is 1, and is a no-op when
// swap is 0 — the Montgomery ladder's conditional swap (spec.md §4.4 step 3)
// depends on this being free of data-dependent branches.
func feCswap(p, q *fe, swap int64) {
	mask := -swap // all-ones when swap==1, all-zeros when swap==0
	for i := 0; i < 16; i++ {
		t := mask & (p[i] ^ q[i])
		p[i] ^= t
		q[i] ^= t
	}
}

func feAdd(a, b fe) fe {
	var o fe
	for i := range o {
		o[i] = a[i] + b[i]
	}
	return o
}

func feSub(a, b fe) fe {
	var o fe
	for i := range o {
		o[i] = a[i] - b[i]
	}
	return o
}

func feMul(a, b fe) fe {
	var t [31]int64
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			t[i+j] += a[i] * b[j]
		}
	}
	for i := 0; i < 15; i++ {
		t[i] += 38 * t[i+16]
	}
	var o fe
	copy(o[:], t[:16])
	feCarry(&o)
	feCarry(&o)
	return o
}

func feSquare(a fe) fe { return feMul(a, a) }

// feInvert computes a^-1 mod p via Fermat's little theorem, a^(p-2), by
// square-and-multiply over the fixed 255-bit exponent — constant time with
// respect to a because the addition chain never depends on a's value.
func feInvert(a fe) fe {
	c := a
	for i := 253; i >= 0; i-- {
		c = feSquare(c)
		if i != 2 && i != 4 {
			c = feMul(c, a)
		}
	}
	return c
}

// fePow22523 computes a^((p-5)/8), used by Ed25519 point decompression's
// inverse-square-root step (RFC 8032 §5.1.3).
func fePow22523(a fe) fe {
	c := a
	for i := 250; i >= 0; i-- {
		c = feSquare(c)
		if i != 1 {
			c = feMul(c, a)
		}
	}
	return c
}

// feBytes reduces o modulo p and serializes it as 32 little-endian bytes.
func feBytes(o fe) [32]byte {
	t := o
	feCarry(&t)
	feCarry(&t)
	feCarry(&t)

	var m fe
	for pass := 0; pass < 2; pass++ {
		m[0] = t[0] - 0xffed
		for i := 1; i < 15; i++ {
			m[i] = t[i] - 0xffff - ((m[i-1] >> 16) & 1)
			m[i-1] &= 0xffff
		}
		m[15] = t[15] - 0x7fff - ((m[14] >> 16) & 1)
		b := (m[15] >> 16) & 1
		m[14] &= 0xffff
		feCswap(&t, &m, 1-b)
	}

	var out [32]byte
	for i := 0; i < 16; i++ {
		out[2*i] = byte(t[i])
		out[2*i+1] = byte(t[i] >> 8)
	}
	return out
}

func feEqual(a, b fe) bool {
	ab := feBytes(a)
	bb := feBytes(b)
	return ConstantTimeCompare(ab[:], bb[:])
}

func feIsNegative(a fe) bool {
	b := feBytes(a)
	return b[0]&1 == 1
}

var feD = fe{
	0x78a3, 0x1359, 0x4dca, 0x75eb, 0xd8ab, 0x4141, 0x0a4d, 0x0070,
	0xe898, 0x7779, 0x4079, 0x8cc7, 0xfe73, 0x2b6f, 0x6cee, 0x5203,
} // -121665/121666 mod p, the Edwards curve equation's d constant

var feD2 = fe{
	0xf159, 0x26b2, 0x9b94, 0xebd6, 0xb156, 0x8283, 0x149a, 0x00e0,
	0xd130, 0xeef3, 0x80f2, 0x198e, 0xfce7, 0x56df, 0xd9dc, 0x2406,
} // 2*d

var feSqrtM1 = fe{
	0xa0b0, 0x4a0e, 0x1b27, 0xc4ee, 0xe478, 0xad2f, 0x1806, 0x2f43,
	0xd7a7, 0x3dfb, 0x0099, 0x2b4d, 0xdf0b, 0x4fc1, 0x2480, 0x2b83,
} // sqrt(-1) mod p, used by Ed25519 point decompression

// feBaseX, feBaseY are the Edwards25519 base point B's coordinates.
var feBaseX = fe{
	0xd51a, 0x8f25, 0x2d60, 0xc956, 0xa7b2, 0x9525, 0xc760, 0x692c,
	0xdc5c, 0xfdd6, 0xe231, 0xc0a4, 0x53fe, 0xcd6e, 0x36d3, 0x2169,
}

var feBaseY = fe{
	0x6658, 0x6666, 0x6666, 0x6666, 0x6666, 0x6666, 0x6666, 0x6666,
	0x6666, 0x6666, 0x6666, 0x6666, 0x6666, 0x6666, 0x6666, 0x6666,
}

var feOneVal = fe{1}
var feZeroVal = fe{}
