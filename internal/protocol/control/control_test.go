package control

import (
	"errors"
	"testing"
)

func TestMarshalEmptyMessageIsTwoBytes(t *testing.T) {
	payload, err := JSONCodec{}.Marshal(Message{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != "{}" {
		t.Fatalf("unexpected encoding: %q", payload)
	}
}

func TestResumeMessageRoundTrip(t *testing.T) {
	codec := JSONCodec{}
	payload, err := codec.Marshal(ResumeMessage("abc123", 42))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := codec.Unmarshal(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Resume != "abc123" {
		t.Fatalf("unexpected resume token: %q", got.Resume)
	}
	if !got.HasAck() || got.AckValue() != 42 {
		t.Fatalf("unexpected ack: %+v", got.Ack)
	}
}

func TestAckOfZeroIsPreserved(t *testing.T) {
	codec := JSONCodec{}
	payload, err := codec.Marshal(AckMessage(0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"ack":0}` {
		t.Fatalf("unexpected encoding: %q", payload)
	}
	got, err := codec.Unmarshal(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.HasAck() {
		t.Fatalf("ack of zero dropped: %+v", got)
	}
}

func TestUnmarshalToleratesUnknownKeys(t *testing.T) {
	got, err := JSONCodec{}.Unmarshal([]byte(`{"session":"tok","future":true,"n":7}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Session != "tok" {
		t.Fatalf("unexpected session: %q", got.Session)
	}
}

func TestUnmarshalMalformedPayload(t *testing.T) {
	_, err := JSONCodec{}.Unmarshal([]byte(`{"resume":`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
