package ring

import (
	"errors"
	"sync"
	"testing"
)

func TestNewStateIsStandalone(t *testing.T) {
	s := NewState("a:4444")
	v := s.View()
	if v.Status != StatusStandalone || v.Left != "" || v.Right != "" || v.Self != "a:4444" {
		t.Fatalf("unexpected initial view %+v", v)
	}
}

func TestJoinTransitions(t *testing.T) {
	s := NewState("a:4444")

	if _, ok := s.BeginJoin(); !ok {
		t.Fatal("BeginJoin from standalone should succeed")
	}
	if prev, ok := s.BeginJoin(); ok || prev != StatusJoining {
		t.Fatalf("second BeginJoin = (%s,%v), want (joining,false)", prev, ok)
	}

	if !s.CompleteJoin("l:4444", "r:4444") {
		t.Fatal("CompleteJoin while joining should succeed")
	}
	left, right := s.Neighbors()
	if left != "l:4444" || right != "r:4444" || s.Status() != StatusMember {
		t.Fatalf("after join: left=%q right=%q status=%s", left, right, s.Status())
	}

	if s.CompleteJoin("x", "y") {
		t.Fatal("CompleteJoin on a member must be rejected")
	}
	if s.AbortJoin() {
		t.Fatal("AbortJoin on a member must be a no-op")
	}
}

func TestAbortJoinRestoresStandalone(t *testing.T) {
	s := NewState("a:4444")
	s.BeginJoin()
	if !s.AbortJoin() {
		t.Fatal("AbortJoin while joining should succeed")
	}
	v := s.View()
	if v.Status != StatusStandalone || v.Left != "" || v.Right != "" {
		t.Fatalf("state after abort = %+v", v)
	}
}

func TestAdmit(t *testing.T) {
	tests := []struct {
		name                      string
		setup                     func(s *State)
		wantLeft, wantRight, prev string
		wantOk                    bool
		wantSelfLeft, wantSelfRgt string
	}{
		{
			name:         "standalone entry forms a ring of two",
			setup:        func(s *State) {},
			wantLeft:     "e:1",
			wantRight:    "e:1",
			prev:         "",
			wantOk:       true,
			wantSelfLeft: "j:1",
			wantSelfRgt:  "j:1",
		},
		{
			name:         "member entry inserts joiner as successor",
			setup:        func(s *State) { s.UpdateNeighbors("p:1", "r:1") },
			wantLeft:     "e:1",
			wantRight:    "r:1",
			prev:         "r:1",
			wantOk:       true,
			wantSelfLeft: "p:1",
			wantSelfRgt:  "j:1",
		},
		{
			name:   "joining entry refuses",
			setup:  func(s *State) { s.BeginJoin() },
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState("e:1")
			tt.setup(s)

			l, r, prev, err := s.Admit("j:1")
			if ok := err == nil; ok != tt.wantOk {
				t.Fatalf("Admit err = %v, want ok %v", err, tt.wantOk)
			}
			if err != nil {
				if !errors.Is(err, ErrEntryJoining) {
					t.Errorf("expected ErrEntryJoining, got %v", err)
				}
				return
			}
			if l != tt.wantLeft || r != tt.wantRight || prev != tt.prev {
				t.Errorf("Admit = (%q,%q,%q), want (%q,%q,%q)", l, r, prev, tt.wantLeft, tt.wantRight, tt.prev)
			}
			left, right := s.Neighbors()
			if left != tt.wantSelfLeft || right != tt.wantSelfRgt {
				t.Errorf("entry neighbors = (%q,%q), want (%q,%q)", left, right, tt.wantSelfLeft, tt.wantSelfRgt)
			}
			if s.Status() != StatusMember {
				t.Errorf("entry status = %s, want member", s.Status())
			}
		})
	}
}

// TestAdmitRepeated checks that admitting the current successor again repeats its
// assignment and leaves the ring unchanged
func TestAdmitRepeated(t *testing.T) {
	t.Run("ring of two", func(t *testing.T) {
		s := NewState("e:1")
		if _, _, _, err := s.Admit("j:1"); err != nil {
			t.Fatalf("first Admit failed: %v", err)
		}

		l, r, prev, err := s.Admit("j:1")
		if err != nil {
			t.Fatalf("repeated Admit failed: %v", err)
		}
		if l != "e:1" || r != "e:1" || prev != "" {
			t.Errorf("repeated Admit = (%q,%q,%q), want (e:1,e:1,\"\")", l, r, prev)
		}
		if v := s.View(); v.Left != "j:1" || v.Right != "j:1" {
			t.Errorf("entry neighbors changed to (%q,%q)", v.Left, v.Right)
		}
	})

	t.Run("larger ring", func(t *testing.T) {
		s := NewState("e:1")
		s.UpdateNeighbors("p:1", "r:1")
		if _, _, _, err := s.Admit("j:1"); err != nil {
			t.Fatalf("first Admit failed: %v", err)
		}

		l, r, prev, err := s.Admit("j:1")
		if err != nil {
			t.Fatalf("repeated Admit failed: %v", err)
		}
		if l != "e:1" || r != "r:1" || prev != "" {
			t.Errorf("repeated Admit = (%q,%q,%q), want (e:1,r:1,\"\")", l, r, prev)
		}
		if v := s.View(); v.Left != "p:1" || v.Right != "j:1" {
			t.Errorf("entry neighbors changed to (%q,%q)", v.Left, v.Right)
		}
	})

	t.Run("ring of two joined via the joiner", func(t *testing.T) {
		s := NewState("e:1")
		s.BeginJoin()
		s.CompleteJoin("j:1", "j:1")

		l, r, prev, err := s.Admit("j:1")
		if err != nil || l != "e:1" || r != "e:1" || prev != "" {
			t.Errorf("Admit = (%q,%q,%q,%v), want (e:1,e:1,\"\",nil)", l, r, prev, err)
		}
	})

	t.Run("successor without recorded admission", func(t *testing.T) {
		s := NewState("e:1")
		s.UpdateNeighbors("p:1", "j:1")

		if _, _, _, err := s.Admit("j:1"); !errors.Is(err, ErrUnknownAssignment) {
			t.Errorf("expected ErrUnknownAssignment, got %v", err)
		}
		if v := s.View(); v.Left != "p:1" || v.Right != "j:1" {
			t.Errorf("entry neighbors changed to (%q,%q)", v.Left, v.Right)
		}
	})

	t.Run("admission of another node replaces the record", func(t *testing.T) {
		s := NewState("e:1")
		s.Admit("j:1")
		s.Admit("k:1")

		l, r, _, err := s.Admit("k:1")
		if err != nil || l != "e:1" || r != "j:1" {
			t.Errorf("Admit = (%q,%q,%v), want (e:1,j:1,nil)", l, r, err)
		}
	})
}

func TestUpdateNeighborsPartial(t *testing.T) {
	s := NewState("a:1")
	s.UpdateNeighbors("l:1", "")
	if s.Status() != StatusStandalone {
		t.Fatalf("one neighbor must not make a member, got %s", s.Status())
	}
	s.UpdateNeighbors("", "r:1")
	left, right := s.Neighbors()
	if left != "l:1" || right != "r:1" || s.Status() != StatusMember {
		t.Fatalf("got left=%q right=%q status=%s", left, right, s.Status())
	}
}

// TestNeighborsConsistent checks that concurrent readers only ever see pairs that were written together
func TestNeighborsConsistent(t *testing.T) {
	s := NewState("a:1")
	pairs := [][2]string{{"l1", "r1"}, {"l2", "r2"}, {"l3", "r3"}}
	valid := map[[2]string]bool{{"", ""}: true}
	for _, p := range pairs {
		valid[p] = true
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			p := pairs[i%len(pairs)]
			s.UpdateNeighbors(p[0], p[1])
		}
	}()

	for i := 0; i < 10000; i++ {
		l, r := s.Neighbors()
		if !valid[[2]string{l, r}] {
			close(stop)
			wg.Wait()
			t.Fatalf("observed torn pair (%q,%q)", l, r)
		}
	}
	close(stop)
	wg.Wait()
}
