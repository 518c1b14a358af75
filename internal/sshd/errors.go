package sshd

import (
	"fmt"

	"github.com/eisbaw/nanosshd/internal/wire"
)

// Error kinds per spec.md §7: each maps to a disconnect reason code (a bare
// I/O error gets no DISCONNECT at all), and the
// connection driver is the single place that turns one into an emitted
// SSH_MSG_DISCONNECT.

// ProtocolError is a malformed packet, unexpected message type, or invalid
// length/padding. Maps to DISCONNECT(PROTOCOL_ERROR).
type ProtocolError struct {
	Detail string
}

func (e ProtocolError) Error() string { return "ssh: protocol error: " + e.Detail }

func (e ProtocolError) disconnectReason() (uint32, string) {
	return wire.ReasonProtocolError, e.Detail
}

// KexFailure is an unsupported algorithm, weak ECDH output, or signature
// failure. Maps to DISCONNECT(KEY_EXCHANGE_FAILED).
type KexFailure struct {
	Detail string
}

func (e KexFailure) Error() string { return "ssh: key exchange failed: " + e.Detail }

func (e KexFailure) disconnectReason() (uint32, string) {
	return wire.ReasonKeyExchangeFailed, e.Detail
}

// MacFailure is an HMAC mismatch on an incoming record. Per spec.md §7 this
// may be answered with DISCONNECT(MAC_ERROR) or a silent close; this
// implementation sends the DISCONNECT when the transport is still usable.
type MacFailure struct{}

func (e MacFailure) Error() string { return "ssh: MAC verification failed" }

func (e MacFailure) disconnectReason() (uint32, string) {
	return wire.ReasonMACError, "MAC error"
}

// ServiceError is an unknown service name in SERVICE_REQUEST. Maps to
// DISCONNECT(SERVICE_NOT_AVAILABLE).
type ServiceError struct {
	Detail string
}

func (e ServiceError) Error() string { return "ssh: service error: " + e.Detail }

func (e ServiceError) disconnectReason() (uint32, string) {
	return wire.ReasonServiceNotAvailable, e.Detail
}

// VersionError is a malformed or unsupported client version line. Maps to
// DISCONNECT(PROTOCOL_VERSION_NOT_SUPPORTED).
type VersionError struct {
	Detail string
}

func (e VersionError) Error() string { return "ssh: version error: " + e.Detail }

func (e VersionError) disconnectReason() (uint32, string) {
	return wire.ReasonProtocolVersionNotSupported, e.Detail
}

// ChannelError is an unknown channel type or bad recipient id. The caller
// sends CHANNEL_OPEN_FAILURE itself before this bubbles up, so this error
// only carries the subsequent DISCONNECT(PROTOCOL_ERROR).
type ChannelError struct {
	Detail string
}

func (e ChannelError) Error() string { return "ssh: channel error: " + e.Detail }

func (e ChannelError) disconnectReason() (uint32, string) {
	return wire.ReasonProtocolError, e.Detail
}

// disconnectable is implemented by every error kind that should produce an
// SSH_MSG_DISCONNECT before the connection is torn down. IoError (a bare I/O
// error from the underlying conn) does not implement it: spec.md §7 says
// "After a hard I/O ... failure ... skip the DISCONNECT."
type disconnectable interface {
	error
	disconnectReason() (uint32, string)
}

// sendDisconnect emits SSH_MSG_DISCONNECT for err if err carries a reason
// code, and is a no-op otherwise (bare I/O errors, already-closed
// transports). This is the single call site spec.md §9 asks for: "the
// systems-language design should use a result/either type ... optionally
// emitting DISCONNECT from a single location."
func sendDisconnect(t *Transport, err error) {
	d, ok := err.(disconnectable)
	if !ok {
		return
	}
	reason, detail := d.disconnectReason()
	_ = t.WritePacket(wire.MarshalDisconnect(reason, fmt.Sprintf("%s", detail)))
}
