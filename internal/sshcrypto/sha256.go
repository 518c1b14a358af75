package sshcrypto

// Hand-rolled FIPS 180-4 SHA-256: 32-byte digest, 64-byte block, streaming
// init/update/final interface plus a one-shot Sum256 wrapper.

const (
	sha256BlockSize  = 64
	sha256DigestSize = 32
)

var sha256K = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

var sha256InitState = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

// SHA256 is a streaming SHA-256 context.
type SHA256 struct {
	h      [8]uint32
	buf    [sha256BlockSize]byte
	nbuf   int
	length uint64 // total bytes processed, for the length suffix
}

// NewSHA256 returns a freshly initialized SHA-256 context.
func NewSHA256() *SHA256 {
	s := &SHA256{}
	s.h = sha256InitState
	return s
}

func rotr32(x uint32, n uint) uint32 { return (x >> n) | (x << (32 - n)) }

func (s *SHA256) block(p []byte) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = uint32(p[i*4])<<24 | uint32(p[i*4+1])<<16 | uint32(p[i*4+2])<<8 | uint32(p[i*4+3])
	}
	for i := 16; i < 64; i++ {
		s0 := rotr32(w[i-15], 7) ^ rotr32(w[i-15], 18) ^ (w[i-15] >> 3)
		s1 := rotr32(w[i-2], 17) ^ rotr32(w[i-2], 19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, d, e, f, g, h := s.h[0], s.h[1], s.h[2], s.h[3], s.h[4], s.h[5], s.h[6], s.h[7]
	for i := 0; i < 64; i++ {
		S1 := rotr32(e, 6) ^ rotr32(e, 11) ^ rotr32(e, 25)
		ch := (e & f) ^ (^e & g)
		temp1 := h + S1 + ch + sha256K[i] + w[i]
		S0 := rotr32(a, 2) ^ rotr32(a, 13) ^ rotr32(a, 22)
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

// Update feeds more data into the hash.
func (s *SHA256) Update(p []byte) {
	s.length += uint64(len(p))
	if s.nbuf > 0 {
		n := copy(s.buf[s.nbuf:], p)
		s.nbuf += n
		p = p[n:]
		if s.nbuf == sha256BlockSize {
			s.block(s.buf[:])
			s.nbuf = 0
		}
	}
	for len(p) >= sha256BlockSize {
		s.block(p[:sha256BlockSize])
		p = p[sha256BlockSize:]
	}
	if len(p) > 0 {
		s.nbuf = copy(s.buf[:], p)
	}
}

// Final appends padding and the length suffix and writes the 32-byte digest
// into out. The context must not be reused afterward.
func (s *SHA256) Final(out *[sha256DigestSize]byte) {
	bitLen := s.length * 8
	s.Update([]byte{0x80})

	zeros := (56 - s.nbuf%sha256BlockSize + sha256BlockSize) % sha256BlockSize
	s.Update(make([]byte, zeros))

	var lenBuf [8]byte
	for i := 0; i < 8; i++ {
		lenBuf[7-i] = byte(bitLen >> (8 * i))
	}
	s.Update(lenBuf[:])

	for i, v := range s.h {
		out[i*4] = byte(v >> 24)
		out[i*4+1] = byte(v >> 16)
		out[i*4+2] = byte(v >> 8)
		out[i*4+3] = byte(v)
	}
}

// Sum256 is a one-shot SHA-256 of a single buffer.
func Sum256(data []byte) [sha256DigestSize]byte {
	s := NewSHA256()
	s.Update(data)
	var out [sha256DigestSize]byte
	s.Final(&out)
	return out
}
