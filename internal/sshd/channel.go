package sshd

import "github.com/eisbaw/nanosshd/internal/wire"

// Greeting is the literal payload this server writes to the one channel it
// ever opens (spec.md §4.10).
const Greeting = "Hello World\r\n"

const (
	serverChannelID     = 0
	serverWindowSize    = 32768
	serverMaxPacketSize = 16384
)

// channelState is the finite automaton spec.md §3 describes for the single
// supported channel: {IDLE -> OPEN_PENDING -> OPEN -> DATA_READY -> EOF_SENT
// -> CLOSE_SENT -> CLOSED}.
type channelState int

const (
	channelIdle channelState = iota
	channelOpenPending
	channelOpen
	channelDataReady
	channelEOFSent
	channelCloseSent
	channelClosed
)

// runChannel implements spec.md §4.10 end to end: CHANNEL_OPEN, the
// pty-req/env/shell/exec request loop, the greeting write, and the
// EOF/CLOSE teardown sequence.
func runChannel(t *Transport) error {
	state := channelIdle

	openPayload, err := t.ReadPacket()
	if err != nil {
		return err
	}
	openMsg, err := wire.ParseChannelOpen(openPayload)
	if err != nil {
		return ProtocolError{Detail: "malformed CHANNEL_OPEN"}
	}
	state = channelOpenPending

	if openMsg.ChanType != "session" {
		if writeErr := t.WritePacket(wire.MarshalChannelOpenFailure(
			openMsg.ClientChannelID, wire.ChannelOpenUnknownChannelType, "Unknown channel type")); writeErr != nil {
			return writeErr
		}
		return ChannelError{Detail: "unknown channel type: " + openMsg.ChanType}
	}

	if err := t.WritePacket(wire.MarshalChannelOpenConfirm(
		openMsg.ClientChannelID, serverChannelID, serverWindowSize, serverMaxPacketSize)); err != nil {
		return err
	}
	state = channelOpen

	for state == channelOpen {
		payload, err := t.ReadPacket()
		if err != nil {
			return err
		}
		if len(payload) < 1 || payload[0] != wire.MsgChannelRequest {
			// A non-CHANNEL_REQUEST message ends the loop; spec.md §4.10 says
			// to "leave the loop and treat it as the next step," but this
			// server has no further step once a request hasn't arrived.
			return ProtocolError{Detail: "expected CHANNEL_REQUEST"}
		}
		reqMsg, err := wire.ParseChannelRequest(payload)
		if err != nil {
			return ProtocolError{Detail: "malformed CHANNEL_REQUEST"}
		}

		switch reqMsg.RequestType {
		case "pty-req", "env":
			if reqMsg.WantReply {
				if err := t.WritePacket(wire.MarshalChannelSuccess(openMsg.ClientChannelID)); err != nil {
					return err
				}
			}
		case "shell", "exec":
			if reqMsg.WantReply {
				if err := t.WritePacket(wire.MarshalChannelSuccess(openMsg.ClientChannelID)); err != nil {
					return err
				}
			}
			state = channelDataReady
		default:
			if reqMsg.WantReply {
				if err := t.WritePacket(wire.MarshalChannelFailure(openMsg.ClientChannelID)); err != nil {
					return err
				}
			}
		}
	}

	if err := t.WritePacket(wire.MarshalChannelData(openMsg.ClientChannelID, []byte(Greeting))); err != nil {
		return err
	}

	if err := t.WritePacket(wire.MarshalChannelEOF(openMsg.ClientChannelID)); err != nil {
		return err
	}

	if err := t.WritePacket(wire.MarshalChannelClose(openMsg.ClientChannelID)); err != nil {
		return err
	}

	// Optionally read the client's CHANNEL_CLOSE; spec.md §4.10 makes this
	// optional, and a non-CLOSE message here doesn't change the outcome.
	_, _ = t.ReadPacket()
	return nil
}
