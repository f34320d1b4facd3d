package session

import "testing"

func TestStoreCreatesOnFirstContact(t *testing.T) {
	st := NewStore()
	if _, ok := st.Peek(42); ok {
		t.Fatal("unexpected session before first contact")
	}

	s := st.Get(42)
	if s == nil {
		t.Fatal("expected session")
	}
	if s.State != "" {
		t.Fatalf("new session state = %q, want empty", s.State)
	}
	if st.Len() != 1 {
		t.Fatalf("store len = %d, want 1", st.Len())
	}

	s.State = "main_menu"
	again := st.Get(42)
	if again != s {
		t.Fatal("Get returned a different session for the same chat")
	}
	if again.State != "main_menu" {
		t.Fatalf("state lost: %q", again.State)
	}
}

func TestStoreKeysByChat(t *testing.T) {
	st := NewStore()
	a := st.Get(1)
	b := st.Get(2)
	if a == b {
		t.Fatal("sessions must be per chat")
	}
	a.State = "question"
	if b.State != "" {
		t.Fatalf("chat 2 state affected: %q", b.State)
	}
}

func TestExclusions(t *testing.T) {
	s := &Session{}
	if s.Excluded(7) {
		t.Fatal("empty set should exclude nothing")
	}
	s.Exclude(7)
	s.Exclude(7)
	s.Exclude(9)
	if !s.Excluded(7) || !s.Excluded(9) {
		t.Fatal("exclusions not recorded")
	}
	if s.ExclusionCount() != 2 {
		t.Fatalf("exclusion count = %d, want 2", s.ExclusionCount())
	}
}

func TestTakeHelpersClear(t *testing.T) {
	s := &Session{SpeakerID: 5, MsgToDelete: 10}
	if got := s.TakeSpeakerID(); got != 5 {
		t.Fatalf("TakeSpeakerID = %d", got)
	}
	if s.SpeakerID != 0 {
		t.Fatal("speaker id not cleared")
	}
	if got := s.TakeMsgToDelete(); got != 10 {
		t.Fatalf("TakeMsgToDelete = %d", got)
	}
	if s.MsgToDelete != 0 {
		t.Fatal("msg to delete not cleared")
	}
}
