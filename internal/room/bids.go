// internal/room/bids.go
//
// Bid ordering for the bidding minigame.
// The queue pops the highest bid first; among equal bids the earlier
// timestamp wins so a late matching bid cannot take the lead.

package room

import (
	"container/heap"
	"sort"
)

// Bid is one player's claim of a solution length.
type Bid struct {
	Timestamp uint64 `json:"timestamp"`
	Bid       uint8  `json:"bid"`
	Player    string `json:"player"`
}

// before reports whether a has priority over b.
func before(a, b Bid) bool {
	if a.Bid != b.Bid {
		return a.Bid > b.Bid
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.Player < b.Player
}

type bidHeap []Bid

func (h bidHeap) Len() int           { return len(h) }
func (h bidHeap) Less(i, j int) bool { return before(h[i], h[j]) }
func (h bidHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *bidHeap) Push(x any)        { *h = append(*h, x.(Bid)) }
func (h *bidHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	*h = old[:n-1]
	return b
}

// BidQueue is a priority queue of bids. The zero value is ready to use.
type BidQueue struct {
	h bidHeap
}

func (q *BidQueue) Push(b Bid) { heap.Push(&q.h, b) }

// Pop removes and returns the highest-priority bid.
func (q *BidQueue) Pop() (Bid, bool) {
	if len(q.h) == 0 {
		return Bid{}, false
	}
	return heap.Pop(&q.h).(Bid), true
}

// Peek returns the highest-priority bid without removing it.
func (q *BidQueue) Peek() (Bid, bool) {
	if len(q.h) == 0 {
		return Bid{}, false
	}
	return q.h[0], true
}

// Withdraw removes every bid placed by player and returns the one that
// ranked highest.
func (q *BidQueue) Withdraw(player string) (Bid, bool) {
	var best Bid
	found := false
	for i := 0; i < len(q.h); {
		if q.h[i].Player != player {
			i++
			continue
		}
		b := heap.Remove(&q.h, i).(Bid)
		if !found || before(b, best) {
			best, found = b, true
		}
		i = 0
	}
	return best, found
}

func (q *BidQueue) Len() int { return len(q.h) }

func (q *BidQueue) Clear() { q.h = q.h[:0] }

// Sorted returns all queued bids in pop order without modifying the queue.
func (q *BidQueue) Sorted() []Bid {
	out := make([]Bid, len(q.h))
	copy(out, q.h)
	sort.Slice(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out
}
