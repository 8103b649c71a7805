package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "rounds.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

func TestRoundsAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rounds := []Round{
				{RoomID: "r1", PlayerID: "a", PlayerName: "Ada", Bid: 6, Solved: true, FinishedAt: base},
				{RoomID: "r1", PlayerID: "b", PlayerName: "Bob", Bid: 9, Solved: false, FinishedAt: base.Add(time.Minute)},
				{RoomID: "r1", PlayerID: "b", PlayerName: "Bob", Bid: 7, Solved: true, FinishedAt: base.Add(2 * time.Minute)},
				{RoomID: "r2", PlayerID: "c", PlayerName: "Ada", Bid: 4, Solved: true, FinishedAt: base.Add(3 * time.Minute)},
			}
			for _, r := range rounds {
				if err := st.SaveRound(ctx, r); err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			got, err := st.Rounds(ctx, "r1", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 3 {
				t.Fatalf("r1 has %d rounds, want 3", len(got))
			}
			if got[0].Bid != 7 || !got[0].Solved || got[0].PlayerName != "Bob" {
				t.Fatalf("newest round = %+v", got[0])
			}
			if !got[2].FinishedAt.Equal(base) {
				t.Fatalf("oldest finishedAt = %v", got[2].FinishedAt)
			}

			if got, _ := st.Rounds(ctx, "r1", 1); len(got) != 1 {
				t.Fatalf("limit ignored: %d rounds", len(got))
			}

			lb, err := st.Leaderboard(ctx, 10)
			if err != nil {
				t.Fatal(err)
			}
			want := []Standing{
				{PlayerName: "Ada", Solved: 2, Attempts: 2},
				{PlayerName: "Bob", Solved: 1, Attempts: 2},
			}
			if len(lb) != len(want) {
				t.Fatalf("leaderboard = %+v", lb)
			}
			for i := range want {
				if lb[i] != want[i] {
					t.Fatalf("leaderboard[%d] = %+v, want %+v", i, lb[i], want[i])
				}
			}
		})
	}
}

func TestSaveRoundValidation(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := st.SaveRound(context.Background(), Round{PlayerID: "a"})
			if !errors.Is(err, ErrInvalidRound) {
				t.Fatalf("missing room id: err = %v", err)
			}
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.db")
	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.SaveRound(context.Background(), Round{RoomID: "r", PlayerID: "p", PlayerName: "P"}); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	second, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Rounds(context.Background(), "r", 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("rounds after reopen = %v, %v", got, err)
	}
}

func TestOpenPicksBackend(t *testing.T) {
	st, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*memory); !ok {
		t.Fatalf("empty dsn should give the memory store, got %T", st)
	}
}
