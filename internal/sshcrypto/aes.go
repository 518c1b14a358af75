package sshcrypto

// Hand-rolled FIPS 197 AES-128 in CTR mode (SP 800-38A), big-endian counter
// increment on the 16-byte block. A single AESCTR value is bound to one
// transport direction for the life of the connection: Crypt advances an
// internal counter and keystream offset across calls, so that encrypting a
// stream of records one at a time produces the same ciphertext as encrypting
// their concatenation in one call (spec.md §4.3's "critical contract"). There
// is deliberately no re-init method: restarting the counter mid-stream would
// silently reuse keystream, so the type simply doesn't expose a way to do it.

const (
	aesBlockSize = 16
	aes128Rounds = 10
)

var aesSBox [256]byte
var aesInvSBox [256]byte
var aesRcon [11]byte

func init() {
	// Build the S-box by computing multiplicative inverses in GF(2^8)
	// (modulus x^8+x^4+x^3+x+1) and applying the affine transform, per
	// FIPS 197 §5.1.1 — generated at init time rather than hard-coded as a
	// 256-entry table literal, since the generation is itself part of the
	// "from first principles" spirit of this package.
	var inv [256]byte
	inv[0] = 0
	for i := 1; i < 256; i++ {
		inv[i] = gfInverse(byte(i))
	}
	for i := 0; i < 256; i++ {
		b := inv[i]
		s := b ^ rotl8(b, 1) ^ rotl8(b, 2) ^ rotl8(b, 3) ^ rotl8(b, 4) ^ 0x63
		aesSBox[i] = s
		aesInvSBox[s] = byte(i)
	}

	rc := byte(1)
	aesRcon[1] = rc
	for i := 2; i <= 10; i++ {
		rc = gfMul(rc, 2)
		aesRcon[i] = rc
	}
}

func rotl8(b byte, n uint) byte { return (b << n) | (b >> (8 - n)) }

// gfMul multiplies two bytes in GF(2^8) with the AES reduction polynomial.
func gfMul(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1b
		}
		b >>= 1
	}
	return p
}

// gfInverse computes the multiplicative inverse of b in GF(2^8) via
// exponentiation to 254 (b^255 = 1 for all nonzero b, so b^-1 = b^254).
func gfInverse(b byte) byte {
	if b == 0 {
		return 0
	}
	result := byte(1)
	base := b
	exp := 254
	for exp > 0 {
		if exp&1 != 0 {
			result = gfMul(result, base)
		}
		base = gfMul(base, base)
		exp >>= 1
	}
	return result
}

// aesKeySchedule expands a 16-byte AES-128 key into 11 round keys (44 words).
func aesKeySchedule(key [16]byte) [44][4]byte {
	var w [44][4]byte
	for i := 0; i < 4; i++ {
		w[i] = [4]byte{key[4*i], key[4*i+1], key[4*i+2], key[4*i+3]}
	}
	for i := 4; i < 44; i++ {
		temp := w[i-1]
		if i%4 == 0 {
			// RotWord
			temp = [4]byte{temp[1], temp[2], temp[3], temp[0]}
			// SubWord
			for j := range temp {
				temp[j] = aesSBox[temp[j]]
			}
			temp[0] ^= aesRcon[i/4]
		}
		for j := range temp {
			w[i][j] = w[i-4][j] ^ temp[j]
		}
	}
	return w
}

func aesEncryptBlock(w [44][4]byte, in [16]byte) [16]byte {
	var state [4][4]byte
	for i := 0; i < 16; i++ {
		state[i%4][i/4] = in[i]
	}

	addRoundKey(&state, w, 0)
	for round := 1; round < aes128Rounds; round++ {
		subBytes(&state)
		shiftRows(&state)
		mixColumns(&state)
		addRoundKey(&state, w, round)
	}
	subBytes(&state)
	shiftRows(&state)
	addRoundKey(&state, w, aes128Rounds)

	var out [16]byte
	for i := 0; i < 16; i++ {
		out[i] = state[i%4][i/4]
	}
	return out
}

func addRoundKey(state *[4][4]byte, w [44][4]byte, round int) {
	for c := 0; c < 4; c++ {
		word := w[round*4+c]
		for r := 0; r < 4; r++ {
			state[r][c] ^= word[r]
		}
	}
}

func subBytes(state *[4][4]byte) {
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			state[r][c] = aesSBox[state[r][c]]
		}
	}
}

func shiftRows(state *[4][4]byte) {
	for r := 1; r < 4; r++ {
		row := state[r]
		var shifted [4]byte
		for c := 0; c < 4; c++ {
			shifted[c] = row[(c+r)%4]
		}
		state[r] = shifted
	}
}

func mixColumns(state *[4][4]byte) {
	for c := 0; c < 4; c++ {
		a0, a1, a2, a3 := state[0][c], state[1][c], state[2][c], state[3][c]
		state[0][c] = gfMul(a0, 2) ^ gfMul(a1, 3) ^ a2 ^ a3
		state[1][c] = a0 ^ gfMul(a1, 2) ^ gfMul(a2, 3) ^ a3
		state[2][c] = a0 ^ a1 ^ gfMul(a2, 2) ^ gfMul(a3, 3)
		state[3][c] = gfMul(a0, 3) ^ a1 ^ a2 ^ gfMul(a3, 2)
	}
}

// AESCTR is an AES-128-CTR keystream generator bound to one transport
// direction. Its counter/IV carries over across every call to Crypt.
type AESCTR struct {
	roundKeys [44][4]byte
	counter   [aesBlockSize]byte
	keystream [aesBlockSize]byte
	used      int // bytes of keystream already consumed from the current block
}

// NewAESCTR initializes an AES-128-CTR context from a 16-byte key and a
// 16-byte initial counter value (the direction's initial IV per RFC 4253
// §7.2). used starts at aesBlockSize so the first Crypt call generates a
// fresh keystream block instead of reusing a zeroed one.
func NewAESCTR(key, iv [16]byte) *AESCTR {
	c := &AESCTR{
		roundKeys: aesKeySchedule(key),
		counter:   iv,
		used:      aesBlockSize,
	}
	return c
}

func incCounter(ctr *[aesBlockSize]byte) {
	for i := aesBlockSize - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			break
		}
	}
}

// Crypt XORs buf in place with the keystream, continuing exactly where the
// previous call left off. Encryption and decryption are the same operation.
func (c *AESCTR) Crypt(buf []byte) {
	for i := range buf {
		if c.used == aesBlockSize {
			c.keystream = aesEncryptBlock(c.roundKeys, c.counter)
			incCounter(&c.counter)
			c.used = 0
		}
		buf[i] ^= c.keystream[c.used]
		c.used++
	}
}
