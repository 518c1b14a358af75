package sshcrypto

// HMAC-SHA256 per RFC 2104: key longer than the block size is first hashed;
// inner/outer pads are 0x36/0x5c.

const (
	hmacIPad = 0x36
	hmacOPad = 0x5c
)

// HMACSHA256 computes HMAC-SHA256(key, data) in one shot.
func HMACSHA256(key, data []byte) [sha256DigestSize]byte {
	if len(key) > sha256BlockSize {
		sum := Sum256(key)
		key = sum[:]
	}

	var ipad, opad [sha256BlockSize]byte
	copy(ipad[:], key)
	copy(opad[:], key)
	for i := 0; i < sha256BlockSize; i++ {
		ipad[i] ^= hmacIPad
		opad[i] ^= hmacOPad
	}

	inner := NewSHA256()
	inner.Update(ipad[:])
	inner.Update(data)
	var innerSum [sha256DigestSize]byte
	inner.Final(&innerSum)

	outer := NewSHA256()
	outer.Update(opad[:])
	outer.Update(innerSum[:])
	var out [sha256DigestSize]byte
	outer.Final(&out)
	return out
}

// HMACSHA256Parts computes HMAC-SHA256 over the concatenation of parts
// without materializing the concatenation, for the record layer's
// seq_num || packet MAC input (RFC 4253 §6.4).
func HMACSHA256Parts(key []byte, parts ...[]byte) [sha256DigestSize]byte {
	if len(key) > sha256BlockSize {
		sum := Sum256(key)
		key = sum[:]
	}

	var ipad, opad [sha256BlockSize]byte
	copy(ipad[:], key)
	copy(opad[:], key)
	for i := 0; i < sha256BlockSize; i++ {
		ipad[i] ^= hmacIPad
		opad[i] ^= hmacOPad
	}

	inner := NewSHA256()
	inner.Update(ipad[:])
	for _, p := range parts {
		inner.Update(p)
	}
	var innerSum [sha256DigestSize]byte
	inner.Final(&innerSum)

	outer := NewSHA256()
	outer.Update(opad[:])
	outer.Update(innerSum[:])
	var out [sha256DigestSize]byte
	outer.Final(&out)
	return out
}

// ConstantTimeCompare reports whether a and b are equal, in time independent
// of where they first differ. Used for MAC verification on record receive
// per spec.md §4.2 ("MAC comparison on receive MUST be constant time").
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
