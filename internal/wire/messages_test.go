package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKexInitRoundTrip(t *testing.T) {
	cookie := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	msg := NewServerKexInit(cookie)

	buf := msg.Marshal()
	got, err := ParseKexInit(buf)
	require.NoError(t, err)

	assert.Equal(t, cookie, got.Cookie)
	assert.Equal(t, []string{"curve25519-sha256"}, got.KexAlgos)
	assert.Equal(t, []string{"ssh-ed25519"}, got.ServerHostKeyAlgos)
	assert.Equal(t, []string{"aes128-ctr"}, got.CiphersClientServer)
	assert.Equal(t, []string{"aes128-ctr"}, got.CiphersServerClient)
	assert.Equal(t, []string{"hmac-sha2-256"}, got.MACsClientServer)
	assert.Equal(t, []string{"hmac-sha2-256"}, got.MACsServerClient)
	assert.False(t, got.FirstKexPacketFollows)
}

func TestParseKexInitRejectsWrongType(t *testing.T) {
	_, err := ParseKexInit([]byte{99})
	assert.Error(t, err)
}

func TestHostKeyBlobShape(t *testing.T) {
	var pub [32]byte
	for i := range pub {
		pub[i] = byte(i)
	}
	blob := BuildHostKeyBlob(pub)

	algo, rest, ok := ParseString(blob)
	require.True(t, ok)
	assert.Equal(t, "ssh-ed25519", string(algo))

	key, rest, ok := ParseString(rest)
	require.True(t, ok)
	assert.Equal(t, pub[:], key)
	assert.Empty(t, rest)
}

func TestServiceRequestAcceptRoundTrip(t *testing.T) {
	req := append([]byte{MsgServiceRequest}, AppendString(nil, []byte("ssh-userauth"))...)
	parsed, err := ParseServiceRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "ssh-userauth", parsed.ServiceName)

	accept := MarshalServiceAccept("ssh-userauth")
	assert.Equal(t, byte(MsgServiceAccept), accept[0])
}

func TestUserAuthRequestPasswordParse(t *testing.T) {
	var buf []byte
	buf = append(buf, MsgUserAuthRequest)
	buf = AppendString(buf, []byte("user"))
	buf = AppendString(buf, []byte("ssh-connection"))
	buf = AppendString(buf, []byte("password"))
	buf = AppendBool(buf, false)
	buf = AppendString(buf, []byte("password123"))

	got, err := ParseUserAuthRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, "user", got.User)
	assert.Equal(t, "ssh-connection", got.Service)
	assert.Equal(t, "password", got.Method)
	assert.False(t, got.Change)
	assert.Equal(t, "password123", got.Password)
}

func TestChannelOpenParse(t *testing.T) {
	var buf []byte
	buf = append(buf, MsgChannelOpen)
	buf = AppendString(buf, []byte("session"))
	buf = AppendUint32(buf, 7)
	buf = AppendUint32(buf, 2097152)
	buf = AppendUint32(buf, 32768)

	got, err := ParseChannelOpen(buf)
	require.NoError(t, err)
	assert.Equal(t, "session", got.ChanType)
	assert.Equal(t, uint32(7), got.ClientChannelID)
	assert.Equal(t, uint32(2097152), got.ClientWindow)
	assert.Equal(t, uint32(32768), got.ClientMaxPacket)
}

func TestChannelRequestParse(t *testing.T) {
	var buf []byte
	buf = append(buf, MsgChannelRequest)
	buf = AppendUint32(buf, 0)
	buf = AppendString(buf, []byte("shell"))
	buf = AppendBool(buf, true)

	got, err := ParseChannelRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.RecipientChannel)
	assert.Equal(t, "shell", got.RequestType)
	assert.True(t, got.WantReply)
}

func TestMarshalDisconnectShape(t *testing.T) {
	buf := MarshalDisconnect(ReasonProtocolVersionNotSupported, "bad version")
	assert.Equal(t, byte(MsgDisconnect), buf[0])

	reason, rest, ok := ParseUint32(buf[1:])
	require.True(t, ok)
	assert.Equal(t, uint32(ReasonProtocolVersionNotSupported), reason)

	desc, _, ok := ParseString(rest)
	require.True(t, ok)
	assert.Equal(t, "bad version", string(desc))
}
