package sender

import (
	"testing"

	"github.com/omega-agent/omega/pkg/store"
)

func msg(id string) store.IncomingMessage {
	return store.IncomingMessage{ID: id, Channel: "telegram", SenderID: "842277204", Text: id}
}

func TestAdmitFirstMessageProceeds(t *testing.T) {
	s := New()
	key := Key("telegram", "842277204")
	if !s.Admit(key, msg("m1")) {
		t.Fatal("first message must be admitted")
	}
	if !s.InFlight(key) {
		t.Fatal("sender must be marked in flight")
	}
}

func TestAdmitBuffersWhileInFlight(t *testing.T) {
	s := New()
	key := Key("telegram", "842277204")
	s.Admit(key, msg("m1"))
	if s.Admit(key, msg("m2")) {
		t.Fatal("second message must be buffered, not admitted")
	}
	if s.Admit(key, msg("m3")) {
		t.Fatal("third message must be buffered, not admitted")
	}

	next, ok := s.Next(key)
	if !ok || next.ID != "m2" {
		t.Fatalf("expected m2 first from buffer, got %+v ok=%v", next, ok)
	}
	next, ok = s.Next(key)
	if !ok || next.ID != "m3" {
		t.Fatalf("expected m3 second from buffer, got %+v ok=%v", next, ok)
	}
	if _, ok := s.Next(key); ok {
		t.Fatal("buffer must be empty")
	}
	if s.InFlight(key) {
		t.Fatal("sender must be released after drain")
	}
}

func TestSendersDoNotBlockEachOther(t *testing.T) {
	s := New()
	if !s.Admit(Key("telegram", "a"), msg("m1")) {
		t.Fatal("sender a must be admitted")
	}
	if !s.Admit(Key("telegram", "b"), msg("m2")) {
		t.Fatal("sender b must be admitted independently")
	}
	if !s.Admit(Key("whatsapp", "a"), msg("m3")) {
		t.Fatal("same sender on another channel must be admitted independently")
	}
}

func TestMidDrainArrivalLandsAtBack(t *testing.T) {
	s := New()
	key := Key("telegram", "842277204")
	s.Admit(key, msg("m1"))
	s.Admit(key, msg("m2"))

	next, ok := s.Next(key)
	if !ok || next.ID != "m2" {
		t.Fatalf("expected m2, got %+v", next)
	}
	// m3 arrives while m2 is being handled.
	if s.Admit(key, msg("m3")) {
		t.Fatal("m3 must buffer during drain")
	}
	next, ok = s.Next(key)
	if !ok || next.ID != "m3" {
		t.Fatalf("expected m3 after m2, got %+v ok=%v", next, ok)
	}
}
