package codec

import (
	"context"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type command struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

func TestJSON_RoundTrip(t *testing.T) {
	c := JSON[command]()

	var sent string
	send := func(ctx context.Context, payload string) error {
		sent = payload
		return nil
	}

	typedSend := TypedSender(send, c)
	if err := typedSend(context.Background(), command{Action: "open", Count: 3}); err != nil {
		t.Fatalf("typed send failed: %v", err)
	}

	var got command
	listener := TypedListener(func(value command) { got = value }, c, nil)
	listener(sent)

	if got.Action != "open" || got.Count != 3 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func TestTypedListener_DecodeError(t *testing.T) {
	c := JSON[command]()

	var invoked bool
	var decodeErr error
	listener := TypedListener(
		func(command) { invoked = true },
		c,
		func(err error) { decodeErr = err },
	)

	listener("{not json")

	if invoked {
		t.Error("listener must not be invoked on decode failure")
	}
	if decodeErr == nil {
		t.Error("expected decode error to be reported")
	}
}

func TestTypedListener_DecodeErrorDroppedWithoutHandler(t *testing.T) {
	c := JSON[command]()

	var invoked bool
	listener := TypedListener(func(command) { invoked = true }, c, nil)
	listener("{not json")

	if invoked {
		t.Error("listener must not be invoked on decode failure")
	}
}

func TestProtobuf_RoundTrip(t *testing.T) {
	c := Protobuf(func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) })

	payload, err := c.Marshal(wrapperspb.String("hoge"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	value, err := c.Unmarshal(payload)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if value.GetValue() != "hoge" {
		t.Errorf("expected %q, got %q", "hoge", value.GetValue())
	}
}

func TestText_Identity(t *testing.T) {
	c := Text()

	payload, err := c.Marshal("hoge")
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if payload != "hoge" {
		t.Errorf("expected identity marshal, got %q", payload)
	}

	value, err := c.Unmarshal(payload)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if value != "hoge" {
		t.Errorf("expected identity unmarshal, got %q", value)
	}
}
