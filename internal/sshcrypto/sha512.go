package sshcrypto

// Hand-rolled FIPS 180-4 SHA-512: 64-byte digest, 128-byte block, 80 rounds
// of 64-bit arithmetic. Ed25519 (spec.md §4.5) uses SHA-512 throughout for
// key expansion and, in Sign, the nonce hash and the challenge hash.

const (
	sha512BlockSize  = 128
	sha512DigestSize = 64
)

var sha512K = [80]uint64{
	0x428a2f98d728ae22, 0x7137449123ef65cd, 0xb5c0fbcfec4d3b2f, 0xe9b5dba58189dbbc,
	0x3956c25bf348b538, 0x59f111f1b605d019, 0x923f82a4af194f9b, 0xab1c5ed5da6d8118,
	0xd807aa98a3030242, 0x12835b0145706fbe, 0x243185be4ee4b28c, 0x550c7dc3d5ffb4e2,
	0x72be5d74f27b896f, 0x80deb1fe3b1696b1, 0x9bdc06a725c71235, 0xc19bf174cf692694,
	0xe49b69c19ef14ad2, 0xefbe4786384f25e3, 0x0fc19dc68b8cd5b5, 0x240ca1cc77ac9c65,
	0x2de92c6f592b0275, 0x4a7484aa6ea6e483, 0x5cb0a9dcbd41fbd4, 0x76f988da831153b5,
	0x983e5152ee66dfab, 0xa831c66d2db43210, 0xb00327c898fb213f, 0xbf597fc7beef0ee4,
	0xc6e00bf33da88fc2, 0xd5a79147930aa725, 0x06ca6351e003826f, 0x142929670a0e6e70,
	0x27b70a8546d22ffc, 0x2e1b21385c26c926, 0x4d2c6dfc5ac42aed, 0x53380d139d95b3df,
	0x650a73548baf63de, 0x766a0abb3c77b2a8, 0x81c2c92e47edaee6, 0x92722c851482353b,
	0xa2bfe8a14cf10364, 0xa81a664bbc423001, 0xc24b8b70d0f89791, 0xc76c51a30654be30,
	0xd192e819d6ef5218, 0xd69906245565a910, 0xf40e35855771202a, 0x106aa07032bbd1b8,
	0x19a4c116b8d2d0c8, 0x1e376c085141ab53, 0x2748774cdf8eeb99, 0x34b0bcb5e19b48a8,
	0x391c0cb3c5c95a63, 0x4ed8aa4ae3418acb, 0x5b9cca4f7763e373, 0x682e6ff3d6b2b8a3,
	0x748f82ee5defb2fc, 0x78a5636f43172f60, 0x84c87814a1f0ab72, 0x8cc702081a6439ec,
	0x90befffa23631e28, 0xa4506cebde82bde9, 0xbef9a3f7b2c67915, 0xc67178f2e372532b,
	0xca273eceea26619c, 0xd186b8c721c0c207, 0xeada7dd6cde0eb1e, 0xf57d4f7fee6ed178,
	0x06f067aa72176fba, 0x0a637dc5a2c898a6, 0x113f9804bef90dae, 0x1b710b35131c471b,
	0x28db77f523047d84, 0x32caab7b40c72493, 0x3c9ebe0a15c9bebc, 0x431d67c49c100d4c,
	0x4cc5d4becb3e42b6, 0x597f299cfc657e2a, 0x5fcb6fab3ad6faec, 0x6c44198c4a475817,
}

var sha512InitState = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b, 0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f, 0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

// SHA512 is a streaming SHA-512 context.
type SHA512 struct {
	h      [8]uint64
	buf    [sha512BlockSize]byte
	nbuf   int
	length uint64 // bytes processed; SSH/Ed25519 inputs never near the 2^64 bit-length wraparound
}

func NewSHA512() *SHA512 {
	s := &SHA512{h: sha512InitState}
	return s
}

func rotr64(x uint64, n uint) uint64 { return (x >> n) | (x << (64 - n)) }

func (s *SHA512) block(p []byte) {
	var w [80]uint64
	for i := 0; i < 16; i++ {
		w[i] = uint64(p[i*8])<<56 | uint64(p[i*8+1])<<48 | uint64(p[i*8+2])<<40 | uint64(p[i*8+3])<<32 |
			uint64(p[i*8+4])<<24 | uint64(p[i*8+5])<<16 | uint64(p[i*8+6])<<8 | uint64(p[i*8+7])
	}
	for i := 16; i < 80; i++ {
		s0 := rotr64(w[i-15], 1) ^ rotr64(w[i-15], 8) ^ (w[i-15] >> 7)
		s1 := rotr64(w[i-2], 19) ^ rotr64(w[i-2], 61) ^ (w[i-2] >> 6)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, d, e, f, g, h := s.h[0], s.h[1], s.h[2], s.h[3], s.h[4], s.h[5], s.h[6], s.h[7]
	for i := 0; i < 80; i++ {
		S1 := rotr64(e, 14) ^ rotr64(e, 18) ^ rotr64(e, 41)
		ch := (e & f) ^ (^e & g)
		temp1 := h + S1 + ch + sha512K[i] + w[i]
		S0 := rotr64(a, 28) ^ rotr64(a, 34) ^ rotr64(a, 39)
		maj := (a & b) ^ (a & c) ^ (b & c)
		temp2 := S0 + maj

		h = g
		g = f
		f = e
		e = d + temp1
		d = c
		c = b
		b = a
		a = temp1 + temp2
	}

	s.h[0] += a
	s.h[1] += b
	s.h[2] += c
	s.h[3] += d
	s.h[4] += e
	s.h[5] += f
	s.h[6] += g
	s.h[7] += h
}

func (s *SHA512) Update(p []byte) {
	s.length += uint64(len(p))
	if s.nbuf > 0 {
		n := copy(s.buf[s.nbuf:], p)
		s.nbuf += n
		p = p[n:]
		if s.nbuf == sha512BlockSize {
			s.block(s.buf[:])
			s.nbuf = 0
		}
	}
	for len(p) >= sha512BlockSize {
		s.block(p[:sha512BlockSize])
		p = p[sha512BlockSize:]
	}
	if len(p) > 0 {
		s.nbuf = copy(s.buf[:], p)
	}
}

func (s *SHA512) Final(out *[sha512DigestSize]byte) {
	bitLen := s.length * 8
	s.Update([]byte{0x80})

	zeros := (112 - s.nbuf%sha512BlockSize + sha512BlockSize) % sha512BlockSize
	s.Update(make([]byte, zeros))

	// SHA-512's length suffix is 128 bits; the high 64 bits are always zero
	// for any input this package ever hashes.
	var lenBuf [16]byte
	for i := 0; i < 8; i++ {
		lenBuf[15-i] = byte(bitLen >> (8 * i))
	}
	s.Update(lenBuf[:])

	for i, v := range s.h {
		out[i*8] = byte(v >> 56)
		out[i*8+1] = byte(v >> 48)
		out[i*8+2] = byte(v >> 40)
		out[i*8+3] = byte(v >> 32)
		out[i*8+4] = byte(v >> 24)
		out[i*8+5] = byte(v >> 16)
		out[i*8+6] = byte(v >> 8)
		out[i*8+7] = byte(v)
	}
}

func Sum512(data []byte) [sha512DigestSize]byte {
	s := NewSHA512()
	s.Update(data)
	var out [sha512DigestSize]byte
	s.Final(&out)
	return out
}
