package token

import (
	"testing"
	"time"
)

type fakeClient struct {
	matched any
	timedOut bool
}

func (f *fakeClient) OnMatch(payload any) { f.matched = payload }
func (f *fakeClient) OnTimeout()          { f.timedOut = true }

func TestCollector_ClientThenConnectMatches(t *testing.T) {
	c := NewCollector(time.Second)
	fc := &fakeClient{}
	c.AddPendingClient("tok1", fc)
	if fc.matched != nil {
		t.Fatal("should not match before connect arrives")
	}
	c.AddPendingConnect("tok1", "payload1")
	if fc.matched != "payload1" {
		t.Fatalf("expected match with payload1, got %v", fc.matched)
	}
	if c.PendingClientCount() != 0 || c.PendingConnectCount() != 0 {
		t.Fatal("both sides should be removed after match")
	}
}

func TestCollector_ConnectThenClientMatches(t *testing.T) {
	c := NewCollector(time.Second)
	c.AddPendingConnect("tok2", "payload2")
	fc := &fakeClient{}
	c.AddPendingClient("tok2", fc)
	if fc.matched != "payload2" {
		t.Fatalf("expected match with payload2, got %v", fc.matched)
	}
}

func TestCollector_SweepTimesOutClient(t *testing.T) {
	c := NewCollector(time.Millisecond)
	fc := &fakeClient{}
	c.AddPendingClient("tok3", fc)
	time.Sleep(5 * time.Millisecond)
	c.Sweep(time.Now())
	if !fc.timedOut {
		t.Fatal("expected client to time out")
	}
	if c.PendingClientCount() != 0 {
		t.Fatal("expired client should be removed")
	}
}

func TestCollector_SweepFreesPendingConnect(t *testing.T) {
	c := NewCollector(time.Millisecond)
	c.AddPendingConnect("tok4", "payload")
	time.Sleep(5 * time.Millisecond)
	c.Sweep(time.Now())
	if c.PendingConnectCount() != 0 {
		t.Fatal("expired connect should be freed")
	}
}

func TestCollector_AtMostOnceMatch(t *testing.T) {
	c := NewCollector(time.Second)
	fc1 := &fakeClient{}
	fc2 := &fakeClient{}
	c.AddPendingClient("tok5", fc1)
	c.AddPendingConnect("tok5", "p1")
	if fc1.matched != "p1" {
		t.Fatal("first match should succeed")
	}
	// Re-depositing the same token with a new payload should not reach fc1
	// again, and a second client waits for a fresh connect instead.
	c.AddPendingConnect("tok5", "p2")
	c.AddPendingClient("tok5", fc2)
	if fc2.matched != "p2" {
		t.Fatalf("second generation should match independently, got %v", fc2.matched)
	}
}

func TestNew_ProducesFixedLengthHex(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(tok) != TokenLength*2 {
		t.Fatalf("expected hex length %d, got %d", TokenLength*2, len(tok))
	}
	tok2, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tok == tok2 {
		t.Fatal("expected distinct tokens")
	}
}
