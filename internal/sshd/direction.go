package sshd

import "github.com/eisbaw/nanosshd/internal/sshcrypto"

// directionState holds everything spec.md §3 ("Direction state") attaches to
// one traffic direction (client->server or server->client): the cipher
// instance (stateful across records, never re-initialized mid-stream), the
// integrity key, and the monotonic sequence number. It is a plain value
// bound into the connection-scoped Transport below — no package-level
// singletons, per spec.md §9's "no hidden singletons" design note.
type directionState struct {
	cipher    *sshcrypto.AESCTR
	macKey    [32]byte
	seqNum    uint32
	encrypted bool
}

// install activates this direction's cipher/MAC state at the NEWKEYS
// transition. Sequence numbers are deliberately left untouched: spec.md
// §4.8 requires they "continue from the count already reached."
func (d *directionState) install(cipherKey, iv [16]byte, macKey [32]byte) {
	d.cipher = sshcrypto.NewAESCTR(cipherKey, iv)
	d.macKey = macKey
	d.encrypted = true
}

func (d *directionState) blockSize() int {
	if d.encrypted {
		return 16
	}
	return 8
}

func seqNumBytes(seq uint32) [4]byte {
	return [4]byte{byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq)}
}
