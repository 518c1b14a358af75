package sshd

import (
	"bufio"
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eisbaw/nanosshd/internal/sshcrypto"
	"github.com/eisbaw/nanosshd/internal/wire"
)

// These tests drive HandleConnection end to end over an in-memory net.Pipe,
// playing the client side of the protocol by hand. There is no external SSH
// client available in this environment, so the client half below implements
// just enough of spec.md §4.8-4.10 to exercise the server, reusing this
// package's own wire-level helpers where the server does.

const (
	testUsername        = "user"
	testPassword        = "hunter2"
	testClientChannelID = 7
	testClientWindow    = 2097152
	testClientMaxPacket = 32768
)

func testConfig() Config {
	return Config{
		Credentials: Credentials{Username: testUsername, Password: testPassword},
		Logger:      zerolog.Nop(),
	}
}

func newTestHostKey(t *testing.T) HostKey {
	hk, err := NewHostKey()
	require.NoError(t, err)
	return hk
}

func runServerAsync(t *testing.T, conn net.Conn, cfg Config) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		HandleConnection(conn, cfg)
	}()
	return done
}

// clientHandshake plays the client side of version exchange, key exchange
// and the "ssh-userauth" service request against a server HandleConnection
// goroutine, returning a Transport with session keys installed in both
// directions.
func clientHandshake(t *testing.T, conn net.Conn, clientVersionLine string) (*Transport, error) {
	reader := bufio.NewReader(conn)
	serverLine, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	serverVersion := trimCRLF(serverLine)

	if _, err := conn.Write([]byte(clientVersionLine + "\r\n")); err != nil {
		return nil, err
	}

	ct := NewTransport(conn)

	iS, err := ct.ReadPacket()
	if err != nil {
		return nil, err
	}

	var cookie [16]byte
	require.NoError(t, sshcrypto.RandomFill(cookie[:]))
	clientKexInit := wire.NewServerKexInit(cookie)
	iC := clientKexInit.Marshal()
	if err := ct.WritePacket(iC); err != nil {
		return nil, err
	}

	var clientScalar [32]byte
	require.NoError(t, sshcrypto.RandomFill(clientScalar[:]))
	qC, err := sshcrypto.ScalarBaseMult(clientScalar)
	require.NoError(t, err)

	ecdhInit := wire.AppendString([]byte{wire.MsgKexECDHInit}, qC[:])
	if err := ct.WritePacket(ecdhInit); err != nil {
		return nil, err
	}

	replyPayload, err := ct.ReadPacket()
	if err != nil {
		return nil, err
	}
	require.Equal(t, byte(wire.MsgKexECDHReply), replyPayload[0])
	body := replyPayload[1:]

	hostKeyBlob, body, ok := wire.ParseString(body)
	require.True(t, ok)
	qSBytes, body, ok := wire.ParseString(body)
	require.True(t, ok)
	sigBlob, _, ok := wire.ParseString(body)
	require.True(t, ok)

	_, rest, ok := wire.ParseString(hostKeyBlob)
	require.True(t, ok)
	serverPubBytes, _, ok := wire.ParseString(rest)
	require.True(t, ok)
	var serverPub [32]byte
	copy(serverPub[:], serverPubBytes)

	_, sigRest, ok := wire.ParseString(sigBlob)
	require.True(t, ok)
	sigBytes, _, ok := wire.ParseString(sigRest)
	require.True(t, ok)
	var sig [64]byte
	copy(sig[:], sigBytes)

	var qS [32]byte
	copy(qS[:], qSBytes)

	sharedSecret, err := sshcrypto.X25519(clientScalar, qS)
	require.NoError(t, err)

	h := computeExchangeHash(clientVersionLine, serverVersion, iC, iS, hostKeyBlob, qC, qS, sharedSecret)
	require.True(t, sshcrypto.Verify(serverPub, h[:], sig), "server host key signature must verify")

	keys := deriveKeys(sharedSecret, h, h)

	// The server writes its NEWKEYS before reading the client's, and
	// net.Pipe does no buffering, so the client reads first.
	newKeysPayload, err := ct.ReadPacket()
	if err != nil {
		return nil, err
	}
	require.Equal(t, byte(wire.MsgNewKeys), newKeysPayload[0])
	ct.InstallReadKeys(keys.keyServerClient, keys.ivServerClient, keys.macKeyServerClient)

	if err := ct.WritePacket([]byte{wire.MsgNewKeys}); err != nil {
		return nil, err
	}
	ct.InstallWriteKeys(keys.keyClientServer, keys.ivClientServer, keys.macKeyClientServer)

	serviceReq := wire.AppendString([]byte{wire.MsgServiceRequest}, []byte("ssh-userauth"))
	if err := ct.WritePacket(serviceReq); err != nil {
		return nil, err
	}
	acceptPayload, err := ct.ReadPacket()
	if err != nil {
		return nil, err
	}
	require.Equal(t, byte(wire.MsgServiceAccept), acceptPayload[0])

	return ct, nil
}

func clientAuthenticate(t *testing.T, ct *Transport, username, password string) []byte {
	var req []byte
	req = append(req, wire.MsgUserAuthRequest)
	req = wire.AppendString(req, []byte(username))
	req = wire.AppendString(req, []byte("ssh-connection"))
	req = wire.AppendString(req, []byte("password"))
	req = wire.AppendBool(req, false)
	req = wire.AppendString(req, []byte(password))
	require.NoError(t, ct.WritePacket(req))

	resp, err := ct.ReadPacket()
	require.NoError(t, err)
	return resp
}

func clientOpenSession(t *testing.T, ct *Transport) {
	openMsg := []byte{wire.MsgChannelOpen}
	openMsg = wire.AppendString(openMsg, []byte("session"))
	openMsg = wire.AppendUint32(openMsg, testClientChannelID)
	openMsg = wire.AppendUint32(openMsg, testClientWindow)
	openMsg = wire.AppendUint32(openMsg, testClientMaxPacket)
	require.NoError(t, ct.WritePacket(openMsg))

	resp, err := ct.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, byte(wire.MsgChannelOpenConfirm), resp[0])
}

func clientRequestShell(t *testing.T, ct *Transport) {
	req := []byte{wire.MsgChannelRequest}
	req = wire.AppendUint32(req, serverChannelID)
	req = wire.AppendString(req, []byte("shell"))
	req = wire.AppendBool(req, true)
	require.NoError(t, ct.WritePacket(req))

	resp, err := ct.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, byte(wire.MsgChannelSuccess), resp[0])
}

func TestHandshakeHappyPath(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := testConfig()
	cfg.HostKey = newTestHostKey(t)
	done := runServerAsync(t, serverConn, cfg)

	ct, err := clientHandshake(t, clientConn, "SSH-2.0-NanoSSHDTestClient_1.0")
	require.NoError(t, err)

	resp := clientAuthenticate(t, ct, testUsername, testPassword)
	require.Equal(t, byte(wire.MsgUserAuthSuccess), resp[0])

	clientOpenSession(t, ct)
	clientRequestShell(t, ct)

	dataPayload, err := ct.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, byte(wire.MsgChannelData), dataPayload[0])
	_, rest, ok := wire.ParseUint32(dataPayload[1:])
	require.True(t, ok)
	data, _, ok := wire.ParseString(rest)
	require.True(t, ok)
	assert.Equal(t, Greeting, string(data))

	eofPayload, err := ct.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, byte(wire.MsgChannelEOF), eofPayload[0])

	closePayload, err := ct.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, byte(wire.MsgChannelClose), closePayload[0])

	require.NoError(t, ct.WritePacket(wire.MarshalChannelClose(serverChannelID)))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server did not finish handling the connection")
	}
}

func TestHandshakeWrongThenRightPassword(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := testConfig()
	cfg.HostKey = newTestHostKey(t)
	runServerAsync(t, serverConn, cfg)

	ct, err := clientHandshake(t, clientConn, "SSH-2.0-NanoSSHDTestClient_1.0")
	require.NoError(t, err)

	resp := clientAuthenticate(t, ct, testUsername, "wrong-password")
	require.Equal(t, byte(wire.MsgUserAuthFailure), resp[0])

	resp = clientAuthenticate(t, ct, testUsername, testPassword)
	require.Equal(t, byte(wire.MsgUserAuthSuccess), resp[0])
}

func TestHandshakeRejectsBadVersionLine(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := testConfig()
	cfg.HostKey = newTestHostKey(t)
	done := runServerAsync(t, serverConn, cfg)

	reader := bufio.NewReader(clientConn)
	_, err := reader.ReadString('\n')
	require.NoError(t, err)

	_, err = clientConn.Write([]byte("NOT-AN-SSH-LINE\r\n"))
	require.NoError(t, err)

	ct := NewTransport(clientConn)
	disconnect, err := ct.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, byte(wire.MsgDisconnect), disconnect[0])

	reason, _, ok := wire.ParseUint32(disconnect[1:])
	require.True(t, ok)
	assert.Equal(t, uint32(wire.ReasonProtocolVersionNotSupported), reason)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server did not finish handling the connection")
	}
}

func TestHandshakeRejectsOverlongVersionLine(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := testConfig()
	cfg.HostKey = newTestHostKey(t)
	done := runServerAsync(t, serverConn, cfg)

	reader := bufio.NewReader(clientConn)
	_, err := reader.ReadString('\n')
	require.NoError(t, err)

	// 300 bytes with no LF: exceeds the 255-byte cap before a newline ever
	// arrives, which must yield PROTOCOL_ERROR rather than
	// PROTOCOL_VERSION_NOT_SUPPORTED (that reason is for a line that does
	// arrive but has the wrong prefix, covered by
	// TestHandshakeRejectsBadVersionLine above). The server stops reading
	// as soon as it crosses the cap, so this write is left to run in the
	// background rather than asserted on: it may end up short once the
	// server disconnects and closes its end.
	go func() {
		_, _ = clientConn.Write(bytes.Repeat([]byte("A"), 300))
	}()

	ct := NewTransport(clientConn)
	disconnect, err := ct.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, byte(wire.MsgDisconnect), disconnect[0])

	reason, _, ok := wire.ParseUint32(disconnect[1:])
	require.True(t, ok)
	assert.Equal(t, uint32(wire.ReasonProtocolError), reason)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server did not finish handling the connection")
	}
}

func TestHandshakeRejectsUnknownChannelType(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := testConfig()
	cfg.HostKey = newTestHostKey(t)
	runServerAsync(t, serverConn, cfg)

	ct, err := clientHandshake(t, clientConn, "SSH-2.0-NanoSSHDTestClient_1.0")
	require.NoError(t, err)

	resp := clientAuthenticate(t, ct, testUsername, testPassword)
	require.Equal(t, byte(wire.MsgUserAuthSuccess), resp[0])

	openMsg := []byte{wire.MsgChannelOpen}
	openMsg = wire.AppendString(openMsg, []byte("x11"))
	openMsg = wire.AppendUint32(openMsg, testClientChannelID)
	openMsg = wire.AppendUint32(openMsg, testClientWindow)
	openMsg = wire.AppendUint32(openMsg, testClientMaxPacket)
	require.NoError(t, ct.WritePacket(openMsg))

	resp, err = ct.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, byte(wire.MsgChannelOpenFailure), resp[0])
	_, rest, ok := wire.ParseUint32(resp[1:])
	require.True(t, ok)
	reason, _, ok := wire.ParseUint32(rest)
	require.True(t, ok)
	assert.Equal(t, uint32(wire.ChannelOpenUnknownChannelType), reason)

	disconnect, err := ct.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, byte(wire.MsgDisconnect), disconnect[0])
}

func TestHandshakeRejectsWeakECDHPoint(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := testConfig()
	cfg.HostKey = newTestHostKey(t)
	done := runServerAsync(t, serverConn, cfg)

	clientVersionLine := "SSH-2.0-NanoSSHDTestClient_1.0"
	reader := bufio.NewReader(clientConn)
	_, err := reader.ReadString('\n')
	require.NoError(t, err)
	_, err = clientConn.Write([]byte(clientVersionLine + "\r\n"))
	require.NoError(t, err)

	ct := NewTransport(clientConn)
	_, err = ct.ReadPacket() // server KEXINIT
	require.NoError(t, err)

	var cookie [16]byte
	require.NoError(t, sshcrypto.RandomFill(cookie[:]))
	clientKexInit := wire.NewServerKexInit(cookie)
	require.NoError(t, ct.WritePacket(clientKexInit.Marshal()))

	var zero [32]byte
	ecdhInit := wire.AppendString([]byte{wire.MsgKexECDHInit}, zero[:])
	require.NoError(t, ct.WritePacket(ecdhInit))

	disconnect, err := ct.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, byte(wire.MsgDisconnect), disconnect[0])
	reason, _, ok := wire.ParseUint32(disconnect[1:])
	require.True(t, ok)
	assert.Equal(t, uint32(wire.ReasonKeyExchangeFailed), reason)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server did not finish handling the connection")
	}
}

// corruptingConn flips the last byte of the next Write call once armed,
// simulating a bit-flipped record in transit for TestHandshakeDetectsMACTamper.
type corruptingConn struct {
	net.Conn
	armed bool
}

func (c *corruptingConn) Write(p []byte) (int, error) {
	if c.armed {
		c.armed = false
		tampered := append([]byte{}, p...)
		tampered[len(tampered)-1] ^= 0xff
		return c.Conn.Write(tampered)
	}
	return c.Conn.Write(p)
}

func TestHandshakeDetectsMACTamper(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := testConfig()
	cfg.HostKey = newTestHostKey(t)
	done := runServerAsync(t, serverConn, cfg)

	corrupting := &corruptingConn{Conn: clientConn}
	ct, err := clientHandshake(t, corrupting, "SSH-2.0-NanoSSHDTestClient_1.0")
	require.NoError(t, err)

	corrupting.armed = true
	resp := clientAuthenticate(t, ct, testUsername, testPassword)
	// The flipped last byte lies in the record's MAC, so the server rejects
	// the record and answers with a MAC-error disconnect; authentication
	// must not succeed.
	assert.NotEqual(t, byte(wire.MsgUserAuthSuccess), resp[0])

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server did not finish handling the connection")
	}
}
