// Package frame provides message framing over byte streams.
//
// A Link turns an io.Reader/io.Writer pair into a sequence-numbered message
// transport. Messages are split into start/data/end frames so that large
// payloads never monopolize the stream, and a write cancelled mid-message is
// terminated with an abort frame instead of leaving the peer with a
// half-reassembled message.
package frame

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

const (
	// frameHeaderSize is 1 byte frame type, 4 bytes sequence, 4 bytes data length.
	frameHeaderSize = 9

	frameStart = uint8(0x01)
	frameData  = uint8(0x02)
	frameEnd   = uint8(0x03)
	frameAbort = uint8(0x04)
)

const (
	// ChunkSize is the maximum data carried by a single data frame.
	ChunkSize = 1024

	// MaxMessageSize caps the reassembled size of a single message.
	MaxMessageSize = 10 * 1024 * 1024
)

// Message is one fully reassembled message received from the peer.
type Message struct {
	Seq  uint32
	Data []byte
}

// Link frames messages over a byte stream. Writes are serialized by an
// internal mutex, which preserves FIFO ordering per sender.
type Link struct {
	reader io.Reader
	writer io.Writer

	writeMu sync.Mutex

	partialMu sync.Mutex
	partial   map[uint32][]byte

	sequence atomic.Uint32
	closed   atomic.Bool
}

// New creates a Link over the given reader and writer.
func New(reader io.Reader, writer io.Writer) *Link {
	return &Link{
		reader:  reader,
		writer:  writer,
		partial: make(map[uint32][]byte),
	}
}

// writeFrame writes a single frame. Holding writeMu across the whole frame
// keeps header and data contiguous on the stream.
func (l *Link) writeFrame(frameType uint8, seq uint32, data []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.writer == nil {
		return fmt.Errorf("writer is nil")
	}

	header := make([]byte, frameHeaderSize)
	header[0] = frameType
	header[1] = byte(seq >> 24)
	header[2] = byte(seq >> 16)
	header[3] = byte(seq >> 8)
	header[4] = byte(seq)
	header[5] = byte(len(data) >> 24)
	header[6] = byte(len(data) >> 16)
	header[7] = byte(len(data) >> 8)
	header[8] = byte(len(data))

	if _, err := l.writer.Write(header); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}

	if frameType == frameData && len(data) > 0 {
		if _, err := l.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write frame data: %w", err)
		}
	}

	return nil
}

// WriteMessageWithSequence sends one message with the given sequence number.
// If the context is cancelled between frames, an abort frame is sent and the
// context error is returned.
func (l *Link) WriteMessageWithSequence(ctx context.Context, seq uint32, data []byte) error {
	if l.closed.Load() {
		return fmt.Errorf("link is closed")
	}

	if len(data) > MaxMessageSize {
		return fmt.Errorf("message size %d exceeds maximum %d", len(data), MaxMessageSize)
	}

	done := ctx.Done()

	if err := l.writeFrame(frameStart, seq, nil); err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}

	for len(data) > 0 {
		select {
		case <-done:
			if err := l.writeFrame(frameAbort, seq, nil); err != nil {
				return fmt.Errorf("failed to abort message: %w", err)
			}
			return ctx.Err()
		default:
		}

		chunk := min(len(data), ChunkSize)
		if err := l.writeFrame(frameData, seq, data[:chunk]); err != nil {
			return fmt.Errorf("failed to write message chunk: %w", err)
		}
		data = data[chunk:]
	}

	select {
	case <-done:
		if err := l.writeFrame(frameAbort, seq, nil); err != nil {
			return fmt.Errorf("failed to abort message: %w", err)
		}
		return ctx.Err()
	default:
	}

	if err := l.writeFrame(frameEnd, seq, nil); err != nil {
		return fmt.Errorf("failed to end message: %w", err)
	}

	return nil
}

// WriteMessage sends one message with an automatically assigned sequence number.
func (l *Link) WriteMessage(ctx context.Context, data []byte) error {
	return l.WriteMessageWithSequence(ctx, l.sequence.Add(1), data)
}

// Messages starts the read loop and returns the channel of reassembled
// messages. The channel is closed when the stream ends, the context is
// cancelled, or the stream desynchronizes beyond recovery.
func (l *Link) Messages(ctx context.Context) (<-chan *Message, error) {
	if l.reader == nil {
		return nil, fmt.Errorf("reader is nil")
	}

	const channelDepth = 4096
	ch := make(chan *Message, channelDepth)

	go func() {
		defer close(ch)

		header := make([]byte, frameHeaderSize)
		chunk := make([]byte, ChunkSize)
		done := ctx.Done()

		for {
			select {
			case <-done:
				return
			default:
			}

			if _, err := io.ReadFull(l.reader, header); err != nil {
				// EOF and closed-pipe errors both mean the peer is gone.
				return
			}

			frameType := header[0]
			seq := uint32(header[1])<<24 | uint32(header[2])<<16 | uint32(header[3])<<8 | uint32(header[4])
			length := uint32(header[5])<<24 | uint32(header[6])<<16 | uint32(header[7])<<8 | uint32(header[8])

			switch frameType {
			case frameStart:
				l.partialMu.Lock()
				if _, exists := l.partial[seq]; !exists {
					l.partial[seq] = make([]byte, 0, ChunkSize)
				}
				l.partialMu.Unlock()

			case frameData:
				if length > ChunkSize {
					// A data frame larger than the chunk size means the
					// stream is desynchronized. There is no way to resync a
					// byte stream, so give up.
					return
				}

				if length > 0 {
					if _, err := io.ReadFull(l.reader, chunk[:length]); err != nil {
						return
					}
				}

				l.partialMu.Lock()
				buf, exists := l.partial[seq]
				if exists {
					if len(buf)+int(length) > MaxMessageSize {
						delete(l.partial, seq)
					} else {
						l.partial[seq] = append(buf, chunk[:length]...)
					}
				}
				l.partialMu.Unlock()

			case frameEnd:
				l.partialMu.Lock()
				buf, exists := l.partial[seq]
				if exists {
					delete(l.partial, seq)
				}
				l.partialMu.Unlock()

				if exists {
					select {
					case ch <- &Message{Seq: seq, Data: buf}:
					case <-done:
						return
					}
				}

			case frameAbort:
				l.partialMu.Lock()
				delete(l.partial, seq)
				l.partialMu.Unlock()

			default:
				// Unknown frame type: desynchronized stream.
				return
			}
		}
	}()

	return ch, nil
}

// PendingCount returns the number of partially reassembled messages.
func (l *Link) PendingCount() int {
	l.partialMu.Lock()
	defer l.partialMu.Unlock()
	return len(l.partial)
}

// Close discards partial reassembly state and marks the link closed. It does
// not close the underlying reader or writer; their owner does that.
func (l *Link) Close() error {
	l.closed.Store(true)

	l.partialMu.Lock()
	defer l.partialMu.Unlock()
	for seq := range l.partial {
		delete(l.partial, seq)
	}

	return nil
}
