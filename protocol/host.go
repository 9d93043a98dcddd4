package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrAckTimeout is returned when the board does not acknowledge a frame
	// within the requested timeout.
	ErrAckTimeout = errors.New("ack timeout")
	// ErrClosed is returned for sends on a stopped transport.
	ErrClosed = errors.New("transport closed")
)

// ResponseHandler receives non-ack frames sent by the board. The payload has
// the command ID already stripped.
type ResponseHandler func(cmdID uint16, payload []byte)

// HostTransport drives the host end of the board link: it frames outgoing
// commands, tracks sequence numbers and matches acknowledgements.
type HostTransport struct {
	port io.ReadWriteCloser

	// Sequence of the next frame to send (0x10-0x1F).
	currentSeq atomic.Uint32

	inputBuffer *FifoBuffer

	// Acks are delivered here; stale ones are skipped by sequence.
	ackChan chan *Message

	handlerMu       sync.RWMutex
	responseHandler ResponseHandler

	// sendMutex serialises whole send/ack exchanges.
	sendMutex  sync.Mutex
	writeMutex sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts a transport over port. The read loop runs until
// Close is called or the port reports EOF.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:        port,
		inputBuffer: NewFifoBuffer(512),
		ackChan:     make(chan *Message, 4),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
	t.currentSeq.Store(MessageDest)

	go t.readLoop()

	return t
}

// SetResponseHandler installs a callback for frames that are not acks.
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

// Send transmits a command frame and waits up to timeout for the board to
// acknowledge it. On timeout the sequence is left unchanged so that a retry
// re-sends the same frame.
func (t *HostTransport) Send(cmdID uint16, arg int32, timeout time.Duration) error {
	t.sendMutex.Lock()
	defer t.sendMutex.Unlock()

	seq := uint8(t.currentSeq.Load())
	frame, err := EncodeFrame(seq, EncodeCommand(cmdID, arg))
	if err != nil {
		return fmt.Errorf("build command: %w", err)
	}

	t.drainAcks()
	if err := t.writeMessage(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	next := NextSequence(seq)
	if err := t.waitForAck(next, timeout); err != nil {
		return err
	}
	t.currentSeq.Store(uint32(next))
	return nil
}

// Post transmits a command frame without waiting for its acknowledgement.
// The ack that eventually arrives is discarded as stale by the next Send.
func (t *HostTransport) Post(cmdID uint16, arg int32) error {
	t.sendMutex.Lock()
	defer t.sendMutex.Unlock()

	seq := uint8(t.currentSeq.Load())
	frame, err := EncodeFrame(seq, EncodeCommand(cmdID, arg))
	if err != nil {
		return fmt.Errorf("build command: %w", err)
	}
	if err := t.writeMessage(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	t.currentSeq.Store(uint32(NextSequence(seq)))
	return nil
}

func (t *HostTransport) writeMessage(msg []byte) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	select {
	case <-t.stopChan:
		return ErrClosed
	default:
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}
	return nil
}

func (t *HostTransport) drainAcks() {
	for {
		select {
		case <-t.ackChan:
		default:
			return
		}
	}
}

func (t *HostTransport) waitForAck(want uint8, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence == want {
				return nil
			}
			// Ack for an earlier frame; keep waiting.
		case <-timer.C:
			return fmt.Errorf("%w after %v", ErrAckTimeout, timeout)
		case <-t.stopChan:
			return ErrClosed
		}
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.inputBuffer.Write(buffer[:n])
			t.processMessages()
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (t *HostTransport) processMessages() {
	data := t.inputBuffer.Data()
	consumed := 0

	for len(data) > 0 {
		msg, n, err := NextFrame(data)
		data = data[n:]
		consumed += n
		if errors.Is(err, ErrShortFrame) {
			break
		}
		if err != nil {
			continue
		}
		t.dispatchMessage(msg)
	}

	t.inputBuffer.Pop(consumed)
}

func (t *HostTransport) dispatchMessage(msg *Message) {
	if msg.IsAck() {
		select {
		case t.ackChan <- msg:
		default:
			// Full of stale acks; drop the oldest.
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	t.handlerMu.RLock()
	handler := t.responseHandler
	t.handlerMu.RUnlock()
	if handler == nil {
		return
	}

	payload := msg.Payload
	cmdID, err := DecodeVLQUint(&payload)
	if err != nil {
		return
	}
	handler(uint16(cmdID), payload)
}

// Close stops the transport and closes the underlying port.
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// CurrentSequence returns the sequence the next frame will carry.
func (t *HostTransport) CurrentSequence() uint8 {
	return uint8(t.currentSeq.Load())
}
