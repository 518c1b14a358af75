package wire

// SSH message type bytes this server sends or receives (spec.md §4.8-4.11).
const (
	MsgDisconnect         = 1
	MsgServiceRequest     = 5
	MsgServiceAccept      = 6
	MsgKexInit            = 20
	MsgNewKeys            = 21
	MsgKexECDHInit        = 30
	MsgKexECDHReply       = 31
	MsgUserAuthRequest    = 50
	MsgUserAuthFailure    = 51
	MsgUserAuthSuccess    = 52
	MsgChannelOpen        = 90
	MsgChannelOpenConfirm = 91
	MsgChannelOpenFailure = 92
	MsgChannelData        = 94
	MsgChannelEOF         = 96
	MsgChannelClose       = 97
	MsgChannelRequest     = 98
	MsgChannelSuccess     = 99
	MsgChannelFailure     = 100
)

// RFC 4253 §11.1 disconnect reason codes this server emits.
const (
	ReasonProtocolError               = 2
	ReasonKeyExchangeFailed           = 3
	ReasonMACError                    = 5
	ReasonServiceNotAvailable         = 7
	ReasonProtocolVersionNotSupported = 8
)

// RFC 4254 §5.1 channel open failure reason codes.
const (
	ChannelOpenAdministrativelyProhibited = 1
	ChannelOpenConnectFailed              = 2
	ChannelOpenUnknownChannelType         = 3
	ChannelOpenResourceShortage           = 4
)

const negotiatedKexAlgo = "curve25519-sha256"
const negotiatedHostKeyAlgo = "ssh-ed25519"
const negotiatedCipherAlgo = "aes128-ctr"
const negotiatedMACAlgo = "hmac-sha2-256"
const negotiatedCompressionAlgo = "none"

// KexInitMsg is the byte-exact SSH_MSG_KEXINIT payload (spec.md §4.8): msg
// type, 16-byte cookie, ten name-lists, first_kex_packet_follows, reserved.
type KexInitMsg struct {
	Cookie                  [16]byte
	KexAlgos                []string
	ServerHostKeyAlgos      []string
	CiphersClientServer     []string
	CiphersServerClient     []string
	MACsClientServer        []string
	MACsServerClient        []string
	CompressionClientServer []string
	CompressionServerClient []string
	LanguagesClientServer   []string
	LanguagesServerClient   []string
	FirstKexPacketFollows   bool
}

// NewServerKexInit builds this server's single-offer KEXINIT, per spec.md
// §4.8: "emits a single algorithm per list (exactly one candidate)."
func NewServerKexInit(cookie [16]byte) KexInitMsg {
	return KexInitMsg{
		Cookie:                  cookie,
		KexAlgos:                []string{negotiatedKexAlgo},
		ServerHostKeyAlgos:      []string{negotiatedHostKeyAlgo},
		CiphersClientServer:     []string{negotiatedCipherAlgo},
		CiphersServerClient:     []string{negotiatedCipherAlgo},
		MACsClientServer:        []string{negotiatedMACAlgo},
		MACsServerClient:        []string{negotiatedMACAlgo},
		CompressionClientServer: []string{negotiatedCompressionAlgo},
		CompressionServerClient: []string{negotiatedCompressionAlgo},
		LanguagesClientServer:   nil,
		LanguagesServerClient:   nil,
	}
}

// Marshal encodes the KEXINIT including its leading message-type byte.
func (m KexInitMsg) Marshal() []byte {
	buf := []byte{MsgKexInit}
	buf = append(buf, m.Cookie[:]...)
	buf = AppendNameList(buf, m.KexAlgos)
	buf = AppendNameList(buf, m.ServerHostKeyAlgos)
	buf = AppendNameList(buf, m.CiphersClientServer)
	buf = AppendNameList(buf, m.CiphersServerClient)
	buf = AppendNameList(buf, m.MACsClientServer)
	buf = AppendNameList(buf, m.MACsServerClient)
	buf = AppendNameList(buf, m.CompressionClientServer)
	buf = AppendNameList(buf, m.CompressionServerClient)
	buf = AppendNameList(buf, m.LanguagesClientServer)
	buf = AppendNameList(buf, m.LanguagesServerClient)
	buf = AppendBool(buf, m.FirstKexPacketFollows)
	buf = AppendUint32(buf, 0) // reserved
	return buf
}

// ParseKexInit parses a full packet payload (type byte included) as a
// KEXINIT message.
func ParseKexInit(payload []byte) (KexInitMsg, error) {
	var m KexInitMsg
	if len(payload) < 1 || payload[0] != MsgKexInit {
		return m, UnexpectedMessageError{Expected: MsgKexInit, Got: firstByte(payload)}
	}
	in := payload[1:]
	if len(in) < 16 {
		return m, ParseError{MsgType: MsgKexInit}
	}
	copy(m.Cookie[:], in[:16])
	in = in[16:]

	var ok bool
	fields := []*[]string{
		&m.KexAlgos, &m.ServerHostKeyAlgos,
		&m.CiphersClientServer, &m.CiphersServerClient,
		&m.MACsClientServer, &m.MACsServerClient,
		&m.CompressionClientServer, &m.CompressionServerClient,
		&m.LanguagesClientServer, &m.LanguagesServerClient,
	}
	for _, f := range fields {
		*f, in, ok = ParseNameList(in)
		if !ok {
			return m, ParseError{MsgType: MsgKexInit}
		}
	}
	m.FirstKexPacketFollows, in, ok = ParseBool(in)
	if !ok {
		return m, ParseError{MsgType: MsgKexInit}
	}
	_, _, ok = ParseUint32(in)
	if !ok {
		return m, ParseError{MsgType: MsgKexInit}
	}
	return m, nil
}

// KexECDHInitMsg is SSH_MSG_KEX_ECDH_INIT: the client's ephemeral public
// point Q_C.
type KexECDHInitMsg struct {
	ClientPubKey []byte // 32 bytes
}

func ParseKexECDHInit(payload []byte) (KexECDHInitMsg, error) {
	var m KexECDHInitMsg
	if len(payload) < 1 || payload[0] != MsgKexECDHInit {
		return m, UnexpectedMessageError{Expected: MsgKexECDHInit, Got: firstByte(payload)}
	}
	q, _, ok := ParseString(payload[1:])
	if !ok {
		return m, ParseError{MsgType: MsgKexECDHInit}
	}
	m.ClientPubKey = q
	return m, nil
}

// KexECDHReplyMsg is SSH_MSG_KEX_ECDH_REPLY: K_S || Q_S || signature.
type KexECDHReplyMsg struct {
	HostKey       []byte // K_S blob: string "ssh-ed25519" || string pubkey
	ServerPubKey  []byte // Q_S, 32 bytes
	SignatureBlob []byte // string "ssh-ed25519" || string sig(64)
}

func (m KexECDHReplyMsg) Marshal() []byte {
	buf := []byte{MsgKexECDHReply}
	buf = AppendString(buf, m.HostKey)
	buf = AppendString(buf, m.ServerPubKey)
	buf = AppendString(buf, m.SignatureBlob)
	return buf
}

// BuildHostKeyBlob encodes K_S = string "ssh-ed25519" || string pubkey(32).
func BuildHostKeyBlob(pub [32]byte) []byte {
	var buf []byte
	buf = AppendString(buf, []byte(negotiatedHostKeyAlgo))
	buf = AppendString(buf, pub[:])
	return buf
}

// BuildSignatureBlob encodes string "ssh-ed25519" || string sig(64).
func BuildSignatureBlob(sig [64]byte) []byte {
	var buf []byte
	buf = AppendString(buf, []byte(negotiatedHostKeyAlgo))
	buf = AppendString(buf, sig[:])
	return buf
}

// ServiceRequestMsg is SSH_MSG_SERVICE_REQUEST.
type ServiceRequestMsg struct {
	ServiceName string
}

func ParseServiceRequest(payload []byte) (ServiceRequestMsg, error) {
	var m ServiceRequestMsg
	if len(payload) < 1 || payload[0] != MsgServiceRequest {
		return m, UnexpectedMessageError{Expected: MsgServiceRequest, Got: firstByte(payload)}
	}
	name, _, ok := ParseString(payload[1:])
	if !ok {
		return m, ParseError{MsgType: MsgServiceRequest}
	}
	m.ServiceName = string(name)
	return m, nil
}

// MarshalServiceAccept encodes SSH_MSG_SERVICE_ACCEPT echoing name.
func MarshalServiceAccept(name string) []byte {
	buf := []byte{MsgServiceAccept}
	return AppendString(buf, []byte(name))
}

// UserAuthRequestMsg is SSH_MSG_USERAUTH_REQUEST, method="password" shape.
type UserAuthRequestMsg struct {
	User     string
	Service  string
	Method   string
	Change   bool
	Password string
}

func ParseUserAuthRequest(payload []byte) (UserAuthRequestMsg, error) {
	var m UserAuthRequestMsg
	if len(payload) < 1 || payload[0] != MsgUserAuthRequest {
		return m, UnexpectedMessageError{Expected: MsgUserAuthRequest, Got: firstByte(payload)}
	}
	in := payload[1:]
	var user, service, method []byte
	var ok bool
	if user, in, ok = ParseString(in); !ok {
		return m, ParseError{MsgType: MsgUserAuthRequest}
	}
	if service, in, ok = ParseString(in); !ok {
		return m, ParseError{MsgType: MsgUserAuthRequest}
	}
	if method, in, ok = ParseString(in); !ok {
		return m, ParseError{MsgType: MsgUserAuthRequest}
	}
	m.User = string(user)
	m.Service = string(service)
	m.Method = string(method)
	if m.Method != "password" {
		return m, nil
	}
	if m.Change, in, ok = ParseBool(in); !ok {
		return m, ParseError{MsgType: MsgUserAuthRequest}
	}
	var pw []byte
	if pw, in, ok = ParseString(in); !ok {
		return m, ParseError{MsgType: MsgUserAuthRequest}
	}
	m.Password = string(pw)
	return m, nil
}

// MarshalUserAuthFailure encodes SSH_MSG_USERAUTH_FAILURE with a
// continuation method list and partial_success flag.
func MarshalUserAuthFailure(methods []string, partialSuccess bool) []byte {
	buf := []byte{MsgUserAuthFailure}
	buf = AppendNameList(buf, methods)
	buf = AppendBool(buf, partialSuccess)
	return buf
}

// MarshalUserAuthSuccess encodes SSH_MSG_USERAUTH_SUCCESS (no body).
func MarshalUserAuthSuccess() []byte {
	return []byte{MsgUserAuthSuccess}
}

// ChannelOpenMsg is SSH_MSG_CHANNEL_OPEN.
type ChannelOpenMsg struct {
	ChanType        string
	ClientChannelID uint32
	ClientWindow    uint32
	ClientMaxPacket uint32
}

func ParseChannelOpen(payload []byte) (ChannelOpenMsg, error) {
	var m ChannelOpenMsg
	if len(payload) < 1 || payload[0] != MsgChannelOpen {
		return m, UnexpectedMessageError{Expected: MsgChannelOpen, Got: firstByte(payload)}
	}
	in := payload[1:]
	var chanType []byte
	var ok bool
	if chanType, in, ok = ParseString(in); !ok {
		return m, ParseError{MsgType: MsgChannelOpen}
	}
	m.ChanType = string(chanType)
	if m.ClientChannelID, in, ok = ParseUint32(in); !ok {
		return m, ParseError{MsgType: MsgChannelOpen}
	}
	if m.ClientWindow, in, ok = ParseUint32(in); !ok {
		return m, ParseError{MsgType: MsgChannelOpen}
	}
	if m.ClientMaxPacket, _, ok = ParseUint32(in); !ok {
		return m, ParseError{MsgType: MsgChannelOpen}
	}
	return m, nil
}

// MarshalChannelOpenConfirm encodes SSH_MSG_CHANNEL_OPEN_CONFIRMATION.
func MarshalChannelOpenConfirm(recipient, sender, window, maxPacket uint32) []byte {
	buf := []byte{MsgChannelOpenConfirm}
	buf = AppendUint32(buf, recipient)
	buf = AppendUint32(buf, sender)
	buf = AppendUint32(buf, window)
	buf = AppendUint32(buf, maxPacket)
	return buf
}

// MarshalChannelOpenFailure encodes SSH_MSG_CHANNEL_OPEN_FAILURE.
func MarshalChannelOpenFailure(recipient uint32, reason uint32, message string) []byte {
	buf := []byte{MsgChannelOpenFailure}
	buf = AppendUint32(buf, recipient)
	buf = AppendUint32(buf, reason)
	buf = AppendString(buf, []byte(message))
	buf = AppendString(buf, nil) // language tag
	return buf
}

// ChannelRequestMsg is SSH_MSG_CHANNEL_REQUEST.
type ChannelRequestMsg struct {
	RecipientChannel uint32
	RequestType      string
	WantReply        bool
	TypeSpecificData []byte
}

func ParseChannelRequest(payload []byte) (ChannelRequestMsg, error) {
	var m ChannelRequestMsg
	if len(payload) < 1 || payload[0] != MsgChannelRequest {
		return m, UnexpectedMessageError{Expected: MsgChannelRequest, Got: firstByte(payload)}
	}
	in := payload[1:]
	var ok bool
	if m.RecipientChannel, in, ok = ParseUint32(in); !ok {
		return m, ParseError{MsgType: MsgChannelRequest}
	}
	var reqType []byte
	if reqType, in, ok = ParseString(in); !ok {
		return m, ParseError{MsgType: MsgChannelRequest}
	}
	m.RequestType = string(reqType)
	if m.WantReply, in, ok = ParseBool(in); !ok {
		return m, ParseError{MsgType: MsgChannelRequest}
	}
	m.TypeSpecificData = in
	return m, nil
}

// MarshalChannelSuccess/Failure encode the 1-word channel-request replies.
func MarshalChannelSuccess(recipient uint32) []byte {
	buf := []byte{MsgChannelSuccess}
	return AppendUint32(buf, recipient)
}

func MarshalChannelFailure(recipient uint32) []byte {
	buf := []byte{MsgChannelFailure}
	return AppendUint32(buf, recipient)
}

// MarshalChannelData encodes SSH_MSG_CHANNEL_DATA.
func MarshalChannelData(recipient uint32, data []byte) []byte {
	buf := []byte{MsgChannelData}
	buf = AppendUint32(buf, recipient)
	buf = AppendString(buf, data)
	return buf
}

// MarshalChannelEOF/Close encode the 1-word channel teardown messages.
func MarshalChannelEOF(recipient uint32) []byte {
	buf := []byte{MsgChannelEOF}
	return AppendUint32(buf, recipient)
}

func MarshalChannelClose(recipient uint32) []byte {
	buf := []byte{MsgChannelClose}
	return AppendUint32(buf, recipient)
}

// MarshalDisconnect encodes SSH_MSG_DISCONNECT.
func MarshalDisconnect(reason uint32, description string) []byte {
	buf := []byte{MsgDisconnect}
	buf = AppendUint32(buf, reason)
	buf = AppendString(buf, []byte(description))
	buf = AppendString(buf, nil) // language tag
	return buf
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
