package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robalobadob/ripoff-robots/internal/board"
	"github.com/robalobadob/ripoff-robots/internal/session"
	"github.com/robalobadob/ripoff-robots/internal/store"
)

var errQuit = errors.New("quit")

const help = `commands:
  host                    start hosting; prints the room code
  join <code>             join a room
  leave                   leave the room
  board                   show the board and your moves
  move <token> <dir>      token: red yellow green blue black; dir: up down left right
  reset                   put every token back
  newboard                generate a new board (host)
  startbid <seconds>      open a bidding round (host)
  bid <moves>             bid on the current round
  bids                    show queued bids
  eval                    evaluate the best bid (host)
  solved | failed         record the evaluated bid's outcome (host)
  players                 show the room
  top                     show the leaderboard
  quit`

// player runs text commands against one session.
type player struct {
	sess  *session.Session
	store store.Store
	now   func() time.Time
	after func(time.Duration, func())

	mu  sync.Mutex
	out io.Writer
}

func (p *player) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// exec runs one command line. errQuit ends the loop.
func (p *player) exec(ctx context.Context, line string) error {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil
	}
	arg := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}

	switch strings.ToLower(f[0]) {
	case "help", "?":
		p.printf("%s\n", help)
	case "quit", "exit":
		return errQuit
	case "host":
		code, err := p.sess.Host(ctx)
		if err != nil {
			return err
		}
		p.printf("hosting, room code: %s\n", code)
	case "join":
		if arg(1) == "" {
			return errors.New("usage: join <code>")
		}
		return p.sess.Join(ctx, arg(1))
	case "leave":
		return p.sess.Close()
	case "board":
		p.printf("%s", render(p.sess.Board(), p.sess.Positions()))
		moves := p.sess.Moves()
		p.printf("moves: %d\n", len(moves))
	case "move":
		tok, err := board.ParseToken(strings.ToLower(arg(1)))
		if err != nil {
			return err
		}
		dir, err := board.ParseDirection(strings.ToLower(arg(2)))
		if err != nil {
			return err
		}
		moved, err := p.sess.Move(tok, dir)
		if err != nil {
			return err
		}
		if !moved {
			p.printf("%s cannot move %s\n", board.TokenName(tok), dir)
		}
	case "reset":
		p.sess.ResetMoves()
	case "newboard":
		return p.sess.NewBoard()
	case "startbid":
		secs, err := strconv.Atoi(arg(1))
		if err != nil || secs <= 0 {
			return errors.New("usage: startbid <seconds>")
		}
		d := time.Duration(secs) * time.Second
		end := uint64(p.now().Add(d).UnixMilli())
		if err := p.sess.StartBid(end); err != nil {
			return err
		}
		if p.after != nil {
			p.after(d, func() { p.closeRound(end) })
		}
	case "bid":
		n, err := strconv.ParseUint(arg(1), 10, 8)
		if err != nil {
			return errors.New("usage: bid <moves>")
		}
		return p.sess.MakeBid(uint8(n))
	case "bids":
		for i, b := range p.sess.Bids() {
			p.printf("%2d. %-16s %d\n", i+1, p.name(b.Player), b.Bid)
		}
	case "eval":
		b, ok, err := p.sess.StartEval()
		if err != nil {
			return err
		}
		if !ok {
			p.printf("no bids left\n")
			return nil
		}
		p.printf("evaluating %s for %d moves\n", p.name(b.Player), b.Bid)
	case "solved", "failed":
		return p.sess.ResolveEval(ctx, strings.EqualFold(f[0], "solved"))
	case "players":
		for _, pl := range p.sess.Players() {
			p.printf("%-16s %d\n", pl.Name, pl.Score)
		}
	case "top":
		if p.store == nil {
			return errors.New("no round history")
		}
		rows, err := p.store.Leaderboard(ctx, 10)
		if err != nil {
			return err
		}
		for i, r := range rows {
			p.printf("%2d. %-16s %d/%d\n", i+1, r.PlayerName, r.Solved, r.Attempts)
		}
	default:
		return fmt.Errorf("unknown command %q (try help)", f[0])
	}
	return nil
}

// closeRound starts evaluation when the round ending at end times out.
// Timers left over from earlier rounds do nothing.
func (p *player) closeRound(end uint64) {
	if r := p.sess.Round(); !r.Open || r.EndTime != end {
		return
	}
	b, ok, err := p.sess.StartEval()
	switch {
	case err != nil:
		p.printf("eval: %v\n", err)
	case !ok:
		p.printf("bidding closed, no bids\n")
	default:
		p.printf("bidding closed, evaluating %s for %d moves\n", p.name(b.Player), b.Bid)
	}
}

func (p *player) name(id string) string {
	for _, pl := range p.sess.Players() {
		if pl.ID == id {
			return pl.Name
		}
	}
	return id
}

// notify prints what other players did.
func (p *player) notify(n session.Notification) {
	switch n.Kind {
	case session.NotifyNetworkChanged:
		p.printf("network: %s\n", n.Phase)
	case session.NotifyBoardChanged:
		p.printf("new board\n")
	case session.NotifyBidRoundStarted:
		left := time.Until(time.UnixMilli(int64(n.EndTime))).Round(time.Second)
		p.printf("bidding open for %s\n", left)
	case session.NotifyBidUpdated:
		p.printf("%s bids %d\n", p.name(n.Player), n.Bid)
	case session.NotifyEvalStarted:
		p.printf("evaluating %s\n", p.name(n.Player))
	case session.NotifyTransportError, session.NotifyProtocolError:
		p.printf("%s: %v\n", n.Kind, n.Err)
	}
}
