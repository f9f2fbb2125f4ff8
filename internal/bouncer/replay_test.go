package bouncer

import (
	"bytes"
	"testing"
)

func joined(chunks [][]byte) []byte {
	return bytes.Join(chunks, nil)
}

func TestReplayLogAppendAndTotal(t *testing.T) {
	l := NewReplayLog(1024)
	l.Append([]byte("hello "))
	l.Append([]byte("world"))
	if got := l.Total(); got != 11 {
		t.Fatalf("total = %d, want 11", got)
	}
	if got := l.Retained(); got != 11 {
		t.Fatalf("retained = %d, want 11", got)
	}
	if got := joined(l.ReplayFrom(0)); !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("replay from 0 = %q", got)
	}
}

func TestReplayLogEvictsOldestPastLimit(t *testing.T) {
	l := NewReplayLog(8)
	l.Append([]byte("aaaa"))
	l.Append([]byte("bbbb"))
	l.Append([]byte("cc"))
	if got := l.Retained(); got != 6 {
		t.Fatalf("retained = %d, want 6 after eviction", got)
	}
	if got := l.Total(); got != 10 {
		t.Fatalf("total = %d, want 10", got)
	}
	// The oldest chunk is gone; replay from 0 yields only the window.
	if got := joined(l.ReplayFrom(0)); !bytes.Equal(got, []byte("bbbbcc")) {
		t.Fatalf("replay = %q, want window only", got)
	}
}

func TestReplayLogAckTrims(t *testing.T) {
	l := NewReplayLog(1024)
	l.Append([]byte("aaaa"))
	l.Append([]byte("bbbb"))
	l.Ack(4)
	if got := l.Retained(); got != 4 {
		t.Fatalf("retained = %d, want 4 after ack", got)
	}
	// A partial ack keeps the chunk it lands inside.
	l.Ack(6)
	if got := l.Retained(); got != 4 {
		t.Fatalf("retained = %d, want 4 after mid-chunk ack", got)
	}
	if got := joined(l.ReplayFrom(6)); !bytes.Equal(got, []byte("bb")) {
		t.Fatalf("replay from 6 = %q, want %q", got, "bb")
	}
}

func TestReplayFromOffsets(t *testing.T) {
	l := NewReplayLog(1024)
	l.Append([]byte("abcd"))
	l.Append([]byte("efgh"))

	if got := joined(l.ReplayFrom(2)); !bytes.Equal(got, []byte("cdefgh")) {
		t.Fatalf("mid-chunk offset: %q", got)
	}
	if got := joined(l.ReplayFrom(4)); !bytes.Equal(got, []byte("efgh")) {
		t.Fatalf("chunk boundary offset: %q", got)
	}
	if got := l.ReplayFrom(8); len(joined(got)) != 0 {
		t.Fatalf("offset at total should replay nothing: %q", joined(got))
	}
	if got := l.ReplayFrom(100); len(joined(got)) != 0 {
		t.Fatalf("offset past total should replay nothing: %q", joined(got))
	}
}
