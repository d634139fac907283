package backend

import (
	"errors"
	"testing"

	"neuronbudget/internal/core"
	"neuronbudget/internal/store/memory"
)

func TestSelectSignedOutUsesLocal(t *testing.T) {
	local := memory.New()
	sel := NewSelector(local, nil)

	got, err := sel.Select(Session{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != local {
		t.Fatal("signed-out session must resolve to the local store")
	}
}

func TestSelectSignedInWithoutRemoteFails(t *testing.T) {
	sel := NewSelector(memory.New(), nil)

	_, err := sel.Select(Session{UserID: "u1"})
	if !errors.Is(err, core.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestSelectionIsReevaluatedPerCall(t *testing.T) {
	local := memory.New()
	sel := NewSelector(local, nil)

	// Same selector, different sessions: the decision follows the session,
	// not any cached handle.
	if _, err := sel.Select(Session{UserID: "u1"}); err == nil {
		t.Fatal("expected failure for signed-in session without remote")
	}
	got, err := sel.Select(Session{})
	if err != nil || got != local {
		t.Fatalf("signed-out selection broken after failed signed-in selection: %v", err)
	}
}

func TestKey(t *testing.T) {
	sel := NewSelector(memory.New(), nil)
	if k := sel.Key(Session{}); k != "local" {
		t.Fatalf("key = %q, want local", k)
	}
	if k := sel.Key(Session{UserID: "u1"}); k != "remote:u1" {
		t.Fatalf("key = %q, want remote:u1", k)
	}
}
