// Package protocol implements the framed command link spoken by the
// monkeyprint controller board.
//
// Every frame is laid out as
//
//	[len][seq][payload ...][crc hi][crc lo][0x7E]
//
// where payload starts with a VLQ command ID. Host frames carry sequence
// numbers 0x10-0x1F; the board answers each frame with an empty-payload ack
// carrying the next sequence it expects.
package protocol

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// MessageMax bounds a scratch output buffer.
	MessageMax = 512
)

// Message is a decoded frame.
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // frame data without header/trailer
	CRC      uint16
}

// IsAck reports whether the frame is a bare acknowledgement.
func (m *Message) IsAck() bool {
	return len(m.Payload) == 0
}

// NextSequence returns the sequence number following seq, wrapping inside
// the 0x10-0x1F host range.
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
