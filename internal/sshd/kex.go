package sshd

import (
	"io"

	"github.com/eisbaw/nanosshd/internal/sshcrypto"
	"github.com/eisbaw/nanosshd/internal/wire"
)

// Negotiated algorithm identifiers (spec.md §6): this server offers exactly
// one candidate per name-list, the defining simplification of an
// embedded-class implementation that never needs to support a second
// option.
const (
	kexAlgo     = "curve25519-sha256"
	hostKeyAlgo = "ssh-ed25519"
	cipherAlgo  = "aes128-ctr"
	macAlgo     = "hmac-sha2-256"
)

const serverVersionLine = "SSH-2.0-NanoSSHD_1.0"

// HostKey is the server's Ed25519 keypair, generated fresh at process start
// and held only in memory (spec.md §6: "Host key ... generated fresh at
// process start ... in memory only").
type HostKey struct {
	Seed   [32]byte
	Public [32]byte
}

// NewHostKey generates a fresh Ed25519 host keypair from the OS CSPRNG.
func NewHostKey() (HostKey, error) {
	var hk HostKey
	if err := sshcrypto.RandomFill(hk.Seed[:]); err != nil {
		return hk, err
	}
	hk.Public = sshcrypto.SecToPub(hk.Seed)
	return hk, nil
}

// sessionKeys holds the six RFC 4253 §7.2 derived values and the exchange
// hash/session_id they were derived from.
type sessionKeys struct {
	ivClientServer     [16]byte
	ivServerClient     [16]byte
	keyClientServer    [16]byte
	keyServerClient    [16]byte
	macKeyClientServer [32]byte
	macKeyServerClient [32]byte
	sessionID          [32]byte
}

// exchangeVersions performs spec.md §4.8's version exchange: the server
// sends its line first, then reads and validates the client's.
func exchangeVersions(conn io.ReadWriter) (clientVersion, serverVersion string, err error) {
	serverVersion = serverVersionLine
	if _, err = conn.Write([]byte(serverVersion + "\r\n")); err != nil {
		return "", "", err
	}

	line, err := readVersionLine(conn)
	if err != nil {
		return "", "", err
	}
	if !hasPrefix(line, "SSH-2.0-") {
		return "", "", VersionError{Detail: "unsupported protocol version: " + line}
	}
	return line, serverVersion, nil
}

// maxVersionLineLen is the 255-byte cap spec.md's Boundary behaviors place on
// the client's identification line, not counting the terminating LF.
const maxVersionLineLen = 255

// readVersionLine reads the client's identification line one byte at a time
// rather than buffering an unbounded amount waiting for a '\n' that may
// never arrive: a line exceeding maxVersionLineLen without LF is a
// PROTOCOL_ERROR per spec.md's Boundary behaviors, not a
// PROTOCOL_VERSION_NOT_SUPPORTED (that reason is for a line that arrives but
// has the wrong prefix).
func readVersionLine(r io.Reader) (string, error) {
	var buf []byte
	var one [1]byte
	for {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			return "", err
		}
		if one[0] == '\n' {
			return trimCRLF(string(buf)), nil
		}
		buf = append(buf, one[0])
		if len(buf) > maxVersionLineLen {
			return "", ProtocolError{Detail: "version line exceeds 255 bytes without LF"}
		}
	}
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// performKeyExchange runs spec.md §4.8's full state machine from KEXINIT_SEND
// through NEWKEYS_RECV and returns the session keys and the session_id.
// transport's read/write directions are still plaintext on entry and are
// installed with the new keys before this function returns.
func performKeyExchange(t *Transport, clientVersion, serverVersionStr string, hostKey HostKey) (sessionKeys, error) {
	var cookie [16]byte
	if err := sshcrypto.RandomFill(cookie[:]); err != nil {
		return sessionKeys{}, err
	}
	serverKexInit := wire.NewServerKexInit(cookie)
	iS := serverKexInit.Marshal()
	if err := t.WritePacket(iS); err != nil {
		return sessionKeys{}, err
	}

	iC, err := t.ReadPacket()
	if err != nil {
		return sessionKeys{}, err
	}
	clientKexInit, err := wire.ParseKexInit(iC)
	if err != nil {
		return sessionKeys{}, ProtocolError{Detail: "malformed KEXINIT"}
	}
	if err := verifyAlgorithmOverlap(clientKexInit); err != nil {
		return sessionKeys{}, err
	}

	ecdhInitPayload, err := t.ReadPacket()
	if err != nil {
		return sessionKeys{}, err
	}
	ecdhInit, err := wire.ParseKexECDHInit(ecdhInitPayload)
	if err != nil {
		return sessionKeys{}, ProtocolError{Detail: "malformed KEX_ECDH_INIT"}
	}
	if len(ecdhInit.ClientPubKey) != 32 {
		return sessionKeys{}, KexFailure{Detail: "bad Q_C length"}
	}
	var qC [32]byte
	copy(qC[:], ecdhInit.ClientPubKey)

	var ephemeralScalar [32]byte
	if err := sshcrypto.RandomFill(ephemeralScalar[:]); err != nil {
		return sessionKeys{}, err
	}
	qS, err := sshcrypto.ScalarBaseMult(ephemeralScalar)
	if err != nil {
		return sessionKeys{}, KexFailure{Detail: "ephemeral key generation failed"}
	}

	sharedSecret, err := sshcrypto.X25519(ephemeralScalar, qC)
	if err != nil {
		return sessionKeys{}, KexFailure{Detail: "weak ECDH point"}
	}

	hostKeyBlob := wire.BuildHostKeyBlob(hostKey.Public)

	h := computeExchangeHash(clientVersion, serverVersionStr, iC, iS, hostKeyBlob, qC, qS, sharedSecret)

	sig := sshcrypto.Sign(hostKey.Seed, hostKey.Public, h[:])
	sigBlob := wire.BuildSignatureBlob(sig)

	reply := wire.KexECDHReplyMsg{HostKey: hostKeyBlob, ServerPubKey: qS[:], SignatureBlob: sigBlob}
	if err := t.WritePacket(reply.Marshal()); err != nil {
		return sessionKeys{}, err
	}

	keys := deriveKeys(sharedSecret, h, h)

	if err := t.WritePacket([]byte{wire.MsgNewKeys}); err != nil {
		return sessionKeys{}, err
	}
	t.InstallWriteKeys(keys.keyServerClient, keys.ivServerClient, keys.macKeyServerClient)

	newKeysPayload, err := t.ReadPacket()
	if err != nil {
		return sessionKeys{}, err
	}
	if len(newKeysPayload) < 1 || newKeysPayload[0] != wire.MsgNewKeys {
		return sessionKeys{}, wire.UnexpectedMessageError{Expected: wire.MsgNewKeys, Got: firstByteOf(newKeysPayload)}
	}
	t.InstallReadKeys(keys.keyClientServer, keys.ivClientServer, keys.macKeyClientServer)

	return keys, nil
}

func firstByteOf(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// verifyAlgorithmOverlap checks that each algorithm this server unilaterally
// selected actually appears in the client's corresponding KEXINIT name-list.
// The reference implementation spec.md §9 describes skips this ("assumes the
// client will accept the single server offering"); this implementation
// resolves that Open Question by checking, per DESIGN.md.
func verifyAlgorithmOverlap(c wire.KexInitMsg) error {
	switch {
	case !wire.NameListContains(c.KexAlgos, kexAlgo):
		return KexFailure{Detail: "no common kex algorithm"}
	case !wire.NameListContains(c.ServerHostKeyAlgos, hostKeyAlgo):
		return KexFailure{Detail: "no common host key algorithm"}
	case !wire.NameListContains(c.CiphersClientServer, cipherAlgo):
		return KexFailure{Detail: "no common client->server cipher"}
	case !wire.NameListContains(c.CiphersServerClient, cipherAlgo):
		return KexFailure{Detail: "no common server->client cipher"}
	case !wire.NameListContains(c.MACsClientServer, macAlgo):
		return KexFailure{Detail: "no common client->server MAC"}
	case !wire.NameListContains(c.MACsServerClient, macAlgo):
		return KexFailure{Detail: "no common server->client MAC"}
	}
	return nil
}

// computeExchangeHash builds H per spec.md §4.8 step 4.
func computeExchangeHash(vC, vS string, iC, iS, hostKeyBlob []byte, qC, qS [32]byte, k [32]byte) [32]byte {
	var buf []byte
	buf = wire.AppendString(buf, []byte(vC))
	buf = wire.AppendString(buf, []byte(vS))
	buf = wire.AppendString(buf, iC)
	buf = wire.AppendString(buf, iS)
	buf = wire.AppendString(buf, hostKeyBlob)
	buf = wire.AppendString(buf, qC[:])
	buf = wire.AppendString(buf, qS[:])
	buf = wire.AppendMpint(buf, k[:])
	return sshcrypto.Sum256(buf)
}

// deriveKeys implements RFC 4253 §7.2's key-derivation expansion for
// identifiers A through F (spec.md §4.8).
func deriveKeys(k, h, sessionID [32]byte) sessionKeys {
	expand := func(id byte, size int) []byte {
		var mpintK []byte
		mpintK = wire.AppendMpint(mpintK, k[:])

		k1Input := append(append([]byte{}, mpintK...), h[:]...)
		k1Input = append(k1Input, id)
		k1Input = append(k1Input, sessionID[:]...)
		digest := sshcrypto.Sum256(k1Input)

		out := append([]byte{}, digest[:]...)
		for len(out) < size {
			nextInput := append(append([]byte{}, mpintK...), h[:]...)
			nextInput = append(nextInput, out...)
			next := sshcrypto.Sum256(nextInput)
			out = append(out, next[:]...)
		}
		return out[:size]
	}

	var ks sessionKeys
	ks.sessionID = sessionID
	copy(ks.ivClientServer[:], expand('A', 16))
	copy(ks.ivServerClient[:], expand('B', 16))
	copy(ks.keyClientServer[:], expand('C', 16))
	copy(ks.keyServerClient[:], expand('D', 16))
	copy(ks.macKeyClientServer[:], expand('E', 32))
	copy(ks.macKeyServerClient[:], expand('F', 32))
	return ks
}
