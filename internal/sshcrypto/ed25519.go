package sshcrypto

// Ed25519 signing (spec.md §4.5, RFC 8032): key derivation via SHA-512,
// deterministic nonce, scalar arithmetic mod the group order L using the
// NaCl-style "modL" reduction, and extended-coordinate Edwards point
// operations (edwards25519.go).

const (
	Ed25519SeedSize      = 32
	Ed25519PublicKeySize = 32
	Ed25519SignatureSize = 64
)

// groupOrderL is L = 2^252 + 27742317777372353535851937790883648493, stored
// little-endian one byte per limb for the modL reduction below.
var groupOrderL = [32]int64{
	0xed, 0xd3, 0xf5, 0x5c, 0x1a, 0x63, 0x12, 0x58,
	0xd6, 0x9c, 0xf7, 0xa2, 0xde, 0xf9, 0xde, 0x14,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10,
}

// modL reduces the 64-limb little-endian value x modulo L in place and
// returns the low 32 bytes, following the NaCl (TweetNaCl) reduction used
// for Ed25519's scalar field.
func modL(x [64]int64) [32]byte {
	var carry int64
	for i := 63; i >= 32; i-- {
		carry = 0
		for j := i - 32; j < i-12; j++ {
			x[j] += carry - 16*x[i]*groupOrderL[j-(i-32)]
			carry = (x[j] + 128) >> 8
			x[j] -= carry << 8
		}
		x[i-12] += carry
		x[i] = 0
	}

	carry = 0
	for j := 0; j < 32; j++ {
		x[j] += carry - (x[31]>>4)*groupOrderL[j]
		carry = x[j] >> 8
		x[j] &= 255
	}
	for j := 0; j < 32; j++ {
		x[j] -= carry * groupOrderL[j]
	}

	for i := 0; i < 31; i++ {
		x[i+1] += x[i] >> 8
	}

	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = byte(x[i] & 255)
	}
	return out
}

// reduceScalarWide reduces an arbitrary 64-byte little-endian value mod L.
func reduceScalarWide(h [64]byte) [32]byte {
	var x [64]int64
	for i, b := range h {
		x[i] = int64(b)
	}
	return modL(x)
}

// scalarMulAddL computes (r + k*a) mod L.
func scalarMulAddL(r, k, a [32]byte) [32]byte {
	var x [64]int64
	for i := 0; i < 32; i++ {
		x[i] = int64(r[i])
	}
	for i := 0; i < 32; i++ {
		for j := 0; j < 32; j++ {
			x[i+j] += int64(k[i]) * int64(a[j])
		}
	}
	return modL(x)
}

// ExpandSeed hashes the 32-byte seed with SHA-512 and splits it into the
// clamped signing scalar and the nonce-derivation prefix, per RFC 8032
// §5.1.5 steps 1-2.
func ExpandSeed(seed [Ed25519SeedSize]byte) (scalar [32]byte, prefix [32]byte) {
	h := Sum512(seed[:])
	copy(scalar[:], h[:32])
	ClampScalar(&scalar)
	copy(prefix[:], h[32:64])
	return
}

// SecToPub derives the public point A = a*B from a 32-byte seed.
func SecToPub(seed [Ed25519SeedSize]byte) [Ed25519PublicKeySize]byte {
	scalar, _ := ExpandSeed(seed)
	A := edScalarMultBase(scalar)
	return edEncode(A)
}

// Sign produces a 64-byte Ed25519 signature (R||S) over message, using the
// host's seed and its already-derived public key A.
func Sign(seed [Ed25519SeedSize]byte, pub [Ed25519PublicKeySize]byte, message []byte) [Ed25519SignatureSize]byte {
	scalar, prefix := ExpandSeed(seed)

	rHash := Sum512(concatBytes(prefix[:], message))
	r := reduceScalarWide(rHash)

	R := edScalarMultBase(r)
	Rbytes := edEncode(R)

	kHash := Sum512(concatBytes(Rbytes[:], pub[:], message))
	k := reduceScalarWide(kHash)

	s := scalarMulAddL(r, k, scalar)

	var sig [Ed25519SignatureSize]byte
	copy(sig[:32], Rbytes[:])
	copy(sig[32:], s[:])
	return sig
}

// Verify checks a 64-byte signature against a public key and message. Not
// used by the server's own handshake (spec.md §4.5), but exercised by this
// package's tests to confirm Sign's output is a genuine Ed25519 signature.
func Verify(pub [Ed25519PublicKeySize]byte, message []byte, sig [Ed25519SignatureSize]byte) bool {
	A, ok := edDecode(pub)
	if !ok {
		return false
	}
	var Rbytes [32]byte
	copy(Rbytes[:], sig[:32])
	R, ok := edDecode(Rbytes)
	if !ok {
		return false
	}
	var s [32]byte
	copy(s[:], sig[32:])

	// reject non-canonical S, per RFC 8032 §5.1.7
	if !scalarIsCanonical(s) {
		return false
	}

	kHash := Sum512(concatBytes(Rbytes[:], pub[:], message))
	k := reduceScalarWide(kHash)

	sB := edScalarMultBase(s)
	kA := edScalarMult(k, A)
	rhs := edAdd(R, kA)

	return edEncode(sB) == edEncode(rhs)
}

func scalarIsCanonical(s [32]byte) bool {
	for i := 31; i >= 0; i-- {
		if int64(s[i]) < groupOrderL[i] {
			return true
		}
		if int64(s[i]) > groupOrderL[i] {
			return false
		}
	}
	return false // s == L is not canonical
}

func concatBytes(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
