package wire

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32RoundTrip(t *testing.T) {
	buf := AppendUint32(nil, 0xdeadbeef)
	got, rest, ok := ParseUint32(buf)
	require.True(t, ok)
	assert.Equal(t, uint32(0xdeadbeef), got)
	assert.Empty(t, rest)
}

func TestStringRoundTrip(t *testing.T) {
	buf := AppendString(nil, []byte("ssh-ed25519"))
	got, rest, ok := ParseString(buf)
	require.True(t, ok)
	assert.Equal(t, []byte("ssh-ed25519"), got)
	assert.Empty(t, rest)
}

func TestParseStringRejectsTruncatedInput(t *testing.T) {
	buf := AppendUint32(nil, 100) // claims 100 bytes follow, but none do
	_, _, ok := ParseString(buf)
	assert.False(t, ok)
}

func TestNameListRoundTrip(t *testing.T) {
	names := []string{"curve25519-sha256", "diffie-hellman-group14-sha256"}
	buf := AppendNameList(nil, names)
	got, _, ok := ParseNameList(buf)
	require.True(t, ok)
	assert.Equal(t, names, got)
}

func TestEmptyNameListRoundTrip(t *testing.T) {
	buf := AppendNameList(nil, nil)
	got, _, ok := ParseNameList(buf)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestNameListContains(t *testing.T) {
	list := []string{"aes128-ctr", "aes256-ctr"}
	assert.True(t, NameListContains(list, "aes128-ctr"))
	assert.False(t, NameListContains(list, "chacha20-poly1305"))
}

func TestMpintZeroIsEmpty(t *testing.T) {
	assert.Empty(t, MpintBytes([]byte{0}))
	assert.Empty(t, MpintBytes(nil))
}

func TestMpintHighBitGetsZeroPad(t *testing.T) {
	v := MpintBytes([]byte{0x80})
	assert.Equal(t, []byte{0x00, 0x80}, v)
}

func TestMpintNoPadWhenHighBitClear(t *testing.T) {
	v := MpintBytes([]byte{0x7f})
	assert.Equal(t, []byte{0x7f}, v)
}

func TestMpintRoundTrip(t *testing.T) {
	for _, v := range [][]byte{
		{0x01},
		{0x80},
		{0x7f, 0xff},
		{0xff, 0xff, 0xff},
		{},
	} {
		buf := AppendMpint(nil, v)
		got, rest, ok := ParseMpint(buf)
		require.True(t, ok)
		assert.Empty(t, rest)

		trimmed := v
		for len(trimmed) > 0 && trimmed[0] == 0 {
			trimmed = trimmed[1:]
		}
		assert.Equal(t, trimmed, got)
	}
}

// TestMpintRoundTripUpTo2040Bits exercises the round trip over every length
// from 0 to 255 bytes (2040 bits) of pseudo-random content, not just the
// handful of fixed-width cases above.
func TestMpintRoundTripUpTo2040Bits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for length := 0; length <= 255; length++ {
		v := make([]byte, length)
		rng.Read(v)

		buf := AppendMpint(nil, v)
		got, rest, ok := ParseMpint(buf)
		require.True(t, ok)
		assert.Empty(t, rest)

		trimmed := v
		for len(trimmed) > 0 && trimmed[0] == 0 {
			trimmed = trimmed[1:]
		}
		assert.Equal(t, trimmed, got, "length=%d", length)
	}
}

func TestPaddingLengthInvariants(t *testing.T) {
	for _, blockSize := range []int{8, 16} {
		for payloadLen := 0; payloadLen < 300; payloadLen++ {
			pad := PaddingLength(payloadLen, blockSize)
			assert.GreaterOrEqual(t, pad, 4)
			assert.Equal(t, 0, (5+payloadLen+pad)%blockSize)
		}
	}
}

func TestBoolRoundTrip(t *testing.T) {
	buf := AppendBool(nil, true)
	buf = AppendBool(buf, false)
	v1, rest, ok := ParseBool(buf)
	require.True(t, ok)
	assert.True(t, v1)
	v2, rest, ok := ParseBool(rest)
	require.True(t, ok)
	assert.False(t, v2)
	assert.Empty(t, rest)
}
