package sshd

import (
	"io"

	"github.com/eisbaw/nanosshd/internal/sshcrypto"
	"github.com/eisbaw/nanosshd/internal/wire"
)

// MaxPacketSize is the largest packet_length this server accepts on receive
// (spec.md §4.7).
const MaxPacketSize = 35000

// Transport is the record layer (spec.md §4.7, component G): it frames
// payloads into SSH binary packets, drives the per-direction cipher/MAC
// state, and owns the raw connection. One Transport is created per
// connection and lives for its duration.
type Transport struct {
	rw    io.ReadWriter
	write directionState
	read  directionState
}

// NewTransport wraps rw (typically a net.Conn) in a fresh, all-plaintext
// record layer.
func NewTransport(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw}
}

// InstallWriteKeys activates the outbound cipher/MAC at NEWKEYS-send time.
func (t *Transport) InstallWriteKeys(cipherKey, iv [16]byte, macKey [32]byte) {
	t.write.install(cipherKey, iv, macKey)
}

// InstallReadKeys activates the inbound cipher/MAC at NEWKEYS-recv time.
func (t *Transport) InstallReadKeys(cipherKey, iv [16]byte, macKey [32]byte) {
	t.read.install(cipherKey, iv, macKey)
}

// WriteSeqNum and ReadSeqNum expose the direction sequence numbers to code
// outside the package without reaching into Transport's internals.
func (t *Transport) WriteSeqNum() uint32 { return t.write.seqNum }
func (t *Transport) ReadSeqNum() uint32  { return t.read.seqNum }

// WritePacket frames and sends payload (its first byte is the SSH message
// type) as one record, per spec.md §4.7's "On send" steps.
func (t *Transport) WritePacket(payload []byte) error {
	blockSize := t.write.blockSize()
	pad := wire.PaddingLength(len(payload), blockSize)

	record := make([]byte, 0, 4+1+len(payload)+pad)
	record = wire.AppendUint32(record, uint32(1+len(payload)+pad))
	record = append(record, byte(pad))
	record = append(record, payload...)

	padding := make([]byte, pad)
	if err := sshcrypto.RandomFill(padding); err != nil {
		return err
	}
	record = append(record, padding...)

	if t.write.encrypted {
		seq := seqNumBytes(t.write.seqNum)
		mac := sshcrypto.HMACSHA256Parts(t.write.macKey[:], seq[:], record)
		t.write.cipher.Crypt(record)
		record = append(record, mac[:]...)
	}

	t.write.seqNum++
	_, err := t.rw.Write(record)
	return err
}

// ReadPacket reads and validates the next record, returning its payload
// (the message-type byte and everything after it), per spec.md §4.7's "On
// receive" steps.
func (t *Transport) ReadPacket() ([]byte, error) {
	if t.read.encrypted {
		return t.readEncryptedPacket()
	}
	return t.readPlaintextPacket()
}

func (t *Transport) readPlaintextPacket() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(t.rw, lenBuf[:]); err != nil {
		return nil, err
	}
	packetLength, _, _ := wire.ParseUint32(lenBuf[:])
	if packetLength < 5 || packetLength > MaxPacketSize {
		return nil, ProtocolError{Detail: "invalid packet length"}
	}

	rest := make([]byte, packetLength)
	if _, err := io.ReadFull(t.rw, rest); err != nil {
		return nil, err
	}
	t.read.seqNum++

	padLen := rest[0]
	if int(padLen) >= int(packetLength)-1 {
		return nil, ProtocolError{Detail: "invalid padding length"}
	}
	payloadLen := int(packetLength) - 1 - int(padLen)
	return rest[1 : 1+payloadLen], nil
}

func (t *Transport) readEncryptedPacket() ([]byte, error) {
	firstBlock := make([]byte, 16)
	if _, err := io.ReadFull(t.rw, firstBlock); err != nil {
		return nil, err
	}

	seq := seqNumBytes(t.read.seqNum)

	decryptedFirst := make([]byte, 16)
	copy(decryptedFirst, firstBlock)
	t.read.cipher.Crypt(decryptedFirst)

	packetLength, _, _ := wire.ParseUint32(decryptedFirst[:4])
	if packetLength < 5 || packetLength > MaxPacketSize {
		return nil, ProtocolError{Detail: "invalid packet length"}
	}

	remainingCipherLen := int(packetLength) + 4 - 16
	if remainingCipherLen < 0 {
		return nil, ProtocolError{Detail: "invalid packet length"}
	}
	remainingCipher := make([]byte, remainingCipherLen)
	if remainingCipherLen > 0 {
		if _, err := io.ReadFull(t.rw, remainingCipher); err != nil {
			return nil, err
		}
	}

	remainingPlain := make([]byte, remainingCipherLen)
	copy(remainingPlain, remainingCipher)
	t.read.cipher.Crypt(remainingPlain)

	fullPlain := append(append([]byte{}, decryptedFirst...), remainingPlain...)

	var gotMAC [32]byte
	if _, err := io.ReadFull(t.rw, gotMAC[:]); err != nil {
		return nil, err
	}

	wantMAC := sshcrypto.HMACSHA256Parts(t.read.macKey[:], seq[:], fullPlain)
	if !sshcrypto.ConstantTimeCompare(gotMAC[:], wantMAC[:]) {
		return nil, MacFailure{}
	}

	t.read.seqNum++

	padLen := fullPlain[4]
	if int(padLen) >= int(packetLength)-1 {
		return nil, ProtocolError{Detail: "invalid padding length"}
	}
	payloadLen := int(packetLength) - 1 - int(padLen)
	return fullPlain[5 : 5+payloadLen], nil
}
