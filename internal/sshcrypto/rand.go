// Package sshcrypto implements, from first principles, every cryptographic
// primitive nanosshd needs: SHA-256, HMAC-SHA256, AES-128 in CTR mode,
// Curve25519 (X25519) scalar multiplication, and Ed25519 signing. Nothing in
// this package imports an external crypto library; the only stdlib crypto
// dependency anywhere in the package is the OS entropy source itself, which
// spec.md scopes as an OS service rather than a primitive to reimplement.
package sshcrypto

import "crypto/rand"

// RandomFill fills dst with uniformly random bytes drawn from the OS CSPRNG.
// It is the sole source of randomness for ephemeral KEX scalars, record
// padding, and the KEXINIT cookie.
func RandomFill(dst []byte) error {
	_, err := rand.Read(dst)
	return err
}
