package room

import "testing"

func TestBidOrdering(t *testing.T) {
	var q BidQueue
	q.Push(Bid{Timestamp: 10, Bid: 5, Player: "a"})
	q.Push(Bid{Timestamp: 5, Bid: 7, Player: "b"})
	q.Push(Bid{Timestamp: 3, Bid: 7, Player: "c"})

	if top, ok := q.Peek(); !ok || top.Player != "c" {
		t.Fatalf("Peek = %+v, %v; want c", top, ok)
	}
	sorted := q.Sorted()
	if len(sorted) != 3 || q.Len() != 3 {
		t.Fatalf("Sorted changed the queue or lost bids: %v", sorted)
	}

	want := []struct {
		bid uint8
		ts  uint64
	}{{7, 3}, {7, 5}, {5, 10}}
	for i, w := range want {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d: queue empty", i)
		}
		if got.Bid != w.bid || got.Timestamp != w.ts {
			t.Fatalf("pop %d = (%d,%d), want (%d,%d)", i, got.Bid, got.Timestamp, w.bid, w.ts)
		}
		if sorted[i] != got {
			t.Fatalf("Sorted()[%d] = %+v, popped %+v", i, sorted[i], got)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("pop on empty queue should report false")
	}
}

func TestBidQueueClearAndRefill(t *testing.T) {
	var q BidQueue
	for i := 0; i < 5; i++ {
		q.Push(Bid{Timestamp: uint64(i), Bid: uint8(i), Player: "p"})
	}
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Len after Clear = %d", q.Len())
	}
	q.Push(Bid{Timestamp: 1, Bid: 3, Player: "x"})
	q.Push(Bid{Timestamp: 2, Bid: 9, Player: "y"})
	if got, _ := q.Pop(); got.Player != "y" {
		t.Fatalf("refilled queue popped %q, want y", got.Player)
	}
}

func TestBidQueueWithdraw(t *testing.T) {
	var q BidQueue
	q.Push(Bid{Timestamp: 1, Bid: 4, Player: "a"})
	q.Push(Bid{Timestamp: 2, Bid: 8, Player: "b"})
	q.Push(Bid{Timestamp: 3, Bid: 6, Player: "a"})
	q.Push(Bid{Timestamp: 4, Bid: 5, Player: "c"})

	got, ok := q.Withdraw("a")
	if !ok || got.Bid != 6 || got.Timestamp != 3 {
		t.Fatalf("Withdraw(a) = %+v, %v", got, ok)
	}
	if q.Len() != 2 {
		t.Fatalf("Len after withdraw = %d, want 2", q.Len())
	}
	if _, ok := q.Withdraw("a"); ok {
		t.Fatalf("second withdraw should find nothing")
	}
	first, _ := q.Pop()
	second, _ := q.Pop()
	if first.Player != "b" || second.Player != "c" {
		t.Fatalf("heap order broken after withdraw: %v then %v", first, second)
	}
}

func TestStateRoster(t *testing.T) {
	s := NewState()
	if s.Score("ghost") != 0 || s.Name("ghost") != "" {
		t.Fatalf("unknown ids should read as zero values")
	}

	s.Join("p1", "Ada")
	s.Join("p2", "Bob")
	s.AddPoint("p2")
	s.AddPoint("p2")
	s.AddPoint("p1")

	players := s.Players()
	if len(players) != 2 || players[0].ID != "p2" || players[0].Score != 2 {
		t.Fatalf("Players() = %+v", players)
	}

	s.Join("p1", "Ada L.")
	if s.Name("p1") != "Ada L." || s.Score("p1") != 1 {
		t.Fatalf("rename should keep the score, got %q/%d", s.Name("p1"), s.Score("p1"))
	}

	s.SetScore("p1", 4)
	if s.Score("p1") != 4 {
		t.Fatalf("SetScore: %d", s.Score("p1"))
	}

	s.Leave("p1")
	if s.Has("p1") || s.Score("p1") != 0 || s.Len() != 1 {
		t.Fatalf("Leave did not remove p1")
	}
}

func TestStateReset(t *testing.T) {
	s := NewState()
	s.Join("p1", "Ada")
	s.AddPoint("p1")
	s.Bids.Push(Bid{Timestamp: 1, Bid: 2, Player: "p1"})
	s.Reset()
	if s.Len() != 0 || s.Score("p1") != 0 || s.Bids.Len() != 0 {
		t.Fatalf("Reset left state behind")
	}
}
