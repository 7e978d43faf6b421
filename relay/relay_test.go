package relay

import (
	"errors"
	"testing"

	"tickhost/sim"
)

type fakeRoster map[sim.ActorID]sim.Authority

func (f fakeRoster) lookup(id sim.ActorID) (sim.Authority, bool) {
	a, ok := f[id]
	return a, ok
}

func newTestRelay(local sim.ParticipantID) (*Relay, *[]ChatMessage) {
	roster := fakeRoster{
		"actor-a": {State: sim.HostID, Input: "alice"},
		"actor-b": {State: sim.HostID, Input: "bob"},
	}
	var sent []ChatMessage
	r := New(local, roster.lookup, BroadcastFunc(func(m ChatMessage) { sent = append(sent, m) }), nil)
	return r, &sent
}

func TestSubmitRelaysWithTransportProvenance(t *testing.T) {
	r, sent := newTestRelay(sim.HostID)

	// 内容里伪造的身份不影响来源
	msg, err := r.Submit("actor-a", "alice", "I am bob")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(*sent) != 1 || (*sent)[0] != msg {
		t.Fatalf("expected exactly one broadcast, got %+v", *sent)
	}
	if msg.Source != "alice" || msg.Content != "I am bob" || msg.ID == "" {
		t.Fatalf("unexpected relayed message %+v", msg)
	}

	if got := Format(msg, "alice"); got != "You said: I am bob" {
		t.Fatalf("sender view = %q", got)
	}
	for _, other := range []sim.ParticipantID{"bob", "carol", sim.HostID} {
		if Classify(msg, other) != ProvenanceOther {
			t.Fatalf("%q should classify as other", other)
		}
	}
	if got := Format(msg, "bob"); got != "Some other player said: I am bob" {
		t.Fatalf("other view = %q", got)
	}
}

func TestSubmitRejectsWithoutInputAuthority(t *testing.T) {
	r, sent := newTestRelay(sim.HostID)

	_, err := r.Submit("actor-a", "bob", "hi")
	if !errors.Is(err, ErrNotInputAuthority) {
		t.Fatalf("err = %v, want ErrNotInputAuthority", err)
	}
	if _, err := r.Submit("missing", "alice", "hi"); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("err = %v, want ErrUnknownActor", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("rejected submissions were broadcast: %+v", *sent)
	}
}

func TestBroadcastRequiresStateAuthority(t *testing.T) {
	r, sent := newTestRelay("alice")

	if _, err := r.Submit("actor-a", "alice", "hi"); !errors.Is(err, ErrNotStateAuthority) {
		t.Fatalf("err = %v, want ErrNotStateAuthority", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("non-authority process broadcast %+v", *sent)
	}
}

func TestRelayPreservesIssueOrder(t *testing.T) {
	r, sent := newTestRelay(sim.HostID)
	for _, c := range []string{"one", "two", "three"} {
		if _, err := r.Submit("actor-b", "bob", c); err != nil {
			t.Fatalf("submit %q: %v", c, err)
		}
	}
	for i, want := range []string{"one", "two", "three"} {
		if (*sent)[i].Content != want {
			t.Fatalf("broadcast %d = %q, want %q", i, (*sent)[i].Content, want)
		}
	}
}
