package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrShortFrame means more bytes are needed before a frame can be decoded.
	ErrShortFrame = errors.New("incomplete frame")
	// ErrBadFrame means the bytes at the head of the stream are not a valid
	// frame; the returned advance skips past the next sync byte.
	ErrBadFrame = errors.New("corrupt frame")
)

// EncodeFrame wraps payload into a complete frame with the given sequence.
func EncodeFrame(seq uint8, payload []byte) ([]byte, error) {
	msgLen := MessageHeaderSize + len(payload) + MessageTrailerSize
	if msgLen > MessageLengthMax {
		return nil, fmt.Errorf("message too long: %d bytes (max %d)", msgLen, MessageLengthMax)
	}

	frame := make([]byte, 0, msgLen)
	frame = append(frame, uint8(msgLen), seq)
	frame = append(frame, payload...)

	crc := CRC16(frame)
	frame = append(frame, uint8(crc>>8), uint8(crc&0xFF), MessageValueSync)
	return frame, nil
}

// EncodeAck builds the empty-payload frame acknowledging everything before
// next.
func EncodeAck(next uint8) []byte {
	frame, _ := EncodeFrame(next, nil)
	return frame
}

// NextFrame decodes the frame at the head of data. It returns the number of
// bytes the caller should drop from data, which is non-zero for skipped sync
// bytes even when err is ErrShortFrame.
func NextFrame(data []byte) (*Message, int, error) {
	skipped := 0
	for skipped < len(data) && data[skipped] == MessageValueSync {
		skipped++
	}
	data = data[skipped:]

	if len(data) < MessageLengthMin {
		return nil, skipped, ErrShortFrame
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return nil, skipped + resync(data), ErrBadFrame
	}
	if len(data) < msgLen {
		return nil, skipped, ErrShortFrame
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return nil, skipped + resync(data), ErrBadFrame
	}

	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return nil, skipped + resync(data), ErrBadFrame
	}

	payload := make([]byte, msgLen-MessageHeaderSize-MessageTrailerSize)
	copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])

	return &Message{
		Length:   data[MessagePositionLen],
		Sequence: data[MessagePositionSeq],
		Payload:  payload,
		CRC:      frameCRC,
	}, skipped + msgLen, nil
}

// resync returns how far to advance so that decoding restarts just after the
// next sync byte.
func resync(data []byte) int {
	i := bytes.IndexByte(data[1:], MessageValueSync)
	if i < 0 {
		return len(data)
	}
	return i + 2
}
