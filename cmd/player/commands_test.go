package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/ripoff-robots/internal/board"
	"github.com/robalobadob/ripoff-robots/internal/rng"
	"github.com/robalobadob/ripoff-robots/internal/session"
	"github.com/robalobadob/ripoff-robots/internal/store"
	"github.com/robalobadob/ripoff-robots/internal/transport/memnet"
)

func newPlayer(t *testing.T) (*player, *bytes.Buffer, *func()) {
	t.Helper()
	quiet := zerolog.Nop()
	db := store.NewMemoryStore()
	sess, err := session.New(session.Options{
		Network:   memnet.New(),
		Name:      "Ada",
		Generator: board.NewGenerator(rng.NewSeeded(7)),
		IDSource:  rng.NewSeeded(8),
		Store:     db,
		Logger:    &quiet,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = sess.Run(ctx) }()

	var scheduled func()
	out := &bytes.Buffer{}
	p := &player{
		sess:  sess,
		store: db,
		now:   func() time.Time { return time.UnixMilli(1_000_000) },
		after: func(_ time.Duration, f func()) { scheduled = f },
		out:   out,
	}
	return p, out, &scheduled
}

func run(t *testing.T, p *player, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if err := p.exec(context.Background(), l); err != nil {
			t.Fatalf("%q: %v", l, err)
		}
	}
}

func TestHostBidEvalFlow(t *testing.T) {
	p, out, _ := newPlayer(t)
	run(t, p, "host", "startbid 30", "bid 4", "bids", "eval", "solved", "players", "top")

	got := out.String()
	for _, want := range []string{"room code:", "evaluating Ada for 4 moves", "Ada              1", "1/1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRoundTimeoutStartsEval(t *testing.T) {
	p, out, scheduled := newPlayer(t)
	run(t, p, "host", "startbid 5", "bid 9")
	if *scheduled == nil {
		t.Fatal("no timer scheduled")
	}
	(*scheduled)()
	if !strings.Contains(out.String(), "bidding closed, evaluating Ada for 9 moves") {
		t.Fatalf("output:\n%s", out.String())
	}
	if p.sess.Round().Open {
		t.Fatal("round still open")
	}
	// A second firing is harmless.
	(*scheduled)()

	// A timer from an earlier round leaves the current one open.
	stale := *scheduled
	p.now = func() time.Time { return time.UnixMilli(1_030_000) }
	run(t, p, "startbid 60")
	stale()
	if !p.sess.Round().Open {
		t.Fatal("stale timer closed the new round")
	}
	(*scheduled)()
	if p.sess.Round().Open {
		t.Fatal("current timer did not close the round")
	}
}

func TestMoveAndBoard(t *testing.T) {
	p, out, _ := newPlayer(t)
	before := p.sess.Positions()
	for _, dir := range []string{"up", "left", "down", "right"} {
		run(t, p, "move red "+dir)
	}
	if len(p.sess.Moves()) == 0 {
		t.Fatal("no move took effect")
	}
	run(t, p, "board")
	if !strings.Contains(out.String(), "R") || !strings.Contains(out.String(), "moves:") {
		t.Fatalf("board output:\n%s", out.String())
	}
	run(t, p, "reset")
	if p.sess.Positions() != before || len(p.sess.Moves()) != 0 {
		t.Fatal("reset did not restore the start")
	}
}

func TestCommandErrors(t *testing.T) {
	p, _, _ := newPlayer(t)
	ctx := context.Background()
	cases := []struct {
		line string
		want error
	}{
		{"move purple up", board.ErrInvalidToken},
		{"move red sideways", board.ErrInvalidDirection},
		{"startbid 10", session.ErrNotHost},
		{"eval", session.ErrNotHost},
	}
	for _, c := range cases {
		if err := p.exec(ctx, c.line); !errors.Is(err, c.want) {
			t.Errorf("%q: got %v, want %v", c.line, err, c.want)
		}
	}
	for _, line := range []string{"bid lots", "startbid", "join", "frobnicate"} {
		if err := p.exec(ctx, line); err == nil {
			t.Errorf("%q: expected an error", line)
		}
	}
	if err := p.exec(ctx, "quit"); !errors.Is(err, errQuit) {
		t.Fatalf("quit: %v", err)
	}
	if err := p.exec(ctx, "   "); err != nil {
		t.Fatalf("blank line: %v", err)
	}
}
