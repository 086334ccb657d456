package frame

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"
)

func newPipeLinks(t *testing.T) (*Link, *Link) {
	t.Helper()

	leftReader, rightWriter := io.Pipe()
	rightReader, leftWriter := io.Pipe()

	t.Cleanup(func() {
		leftReader.Close()
		rightWriter.Close()
		rightReader.Close()
		leftWriter.Close()
	})

	return New(leftReader, leftWriter), New(rightReader, rightWriter)
}

func receiveOne(t *testing.T, ch <-chan *Message) *Message {
	t.Helper()

	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("message channel closed unexpectedly")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestLink_RoundTrip(t *testing.T) {
	left, right := newPipeLinks(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv, err := right.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}

	payload := []byte("hello over the boundary")
	if err := left.WriteMessage(ctx, payload); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	msg := receiveOne(t, recv)
	if !bytes.Equal(msg.Data, payload) {
		t.Errorf("payload mismatch: expected %q, got %q", payload, msg.Data)
	}
}

func TestLink_ChunkedMessage(t *testing.T) {
	left, right := newPipeLinks(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv, err := right.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}

	// Spans multiple data frames plus a trailing partial chunk.
	payload := make([]byte, 10*ChunkSize+17)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	if err := left.WriteMessage(ctx, payload); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	msg := receiveOne(t, recv)
	if !bytes.Equal(msg.Data, payload) {
		t.Errorf("chunked payload did not reassemble correctly")
	}
}

func TestLink_MessageOrder(t *testing.T) {
	left, right := newPipeLinks(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv, err := right.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}

	const numMessages = 8
	go func() {
		for i := 0; i < numMessages; i++ {
			left.WriteMessage(ctx, []byte(fmt.Sprintf("message-%d", i)))
		}
	}()

	for i := 0; i < numMessages; i++ {
		msg := receiveOne(t, recv)
		expected := fmt.Sprintf("message-%d", i)
		if string(msg.Data) != expected {
			t.Fatalf("out of order delivery: expected %q, got %q", expected, msg.Data)
		}
	}
}

func TestLink_EmptyMessage(t *testing.T) {
	left, right := newPipeLinks(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv, err := right.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}

	if err := left.WriteMessage(ctx, nil); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	msg := receiveOne(t, recv)
	if len(msg.Data) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(msg.Data))
	}
}

func TestLink_AbortDiscardsPartial(t *testing.T) {
	left, right := newPipeLinks(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv, err := right.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}

	// Hand-feed an aborted message, then a complete one.
	go func() {
		left.writeFrame(frameStart, 7, nil)
		left.writeFrame(frameData, 7, []byte("doomed"))
		left.writeFrame(frameAbort, 7, nil)
		left.WriteMessageWithSequence(ctx, 8, []byte("survivor"))
	}()

	msg := receiveOne(t, recv)
	if string(msg.Data) != "survivor" {
		t.Errorf("expected aborted message to be discarded, got %q", msg.Data)
	}
	if msg.Seq != 8 {
		t.Errorf("expected sequence 8, got %d", msg.Seq)
	}
}

func TestLink_WriteAfterClose(t *testing.T) {
	left, _ := newPipeLinks(t)

	if err := left.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := left.WriteMessage(context.Background(), []byte("late")); err == nil {
		t.Error("expected error writing on a closed link")
	}
}

func TestLink_OversizeMessageRejected(t *testing.T) {
	left, _ := newPipeLinks(t)

	payload := make([]byte, MaxMessageSize+1)
	if err := left.WriteMessage(context.Background(), payload); err == nil {
		t.Error("expected error for oversize message")
	}
}

func TestLink_ChannelClosesOnEOF(t *testing.T) {
	reader, writer := io.Pipe()
	link := New(reader, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv, err := link.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}

	writer.Close()

	select {
	case _, ok := <-recv:
		if ok {
			t.Error("expected closed channel after EOF")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
