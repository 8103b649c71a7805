// cmd/player/main.go
//
// Headless player: hosts or joins a room through the relay and reads
// commands from stdin.
//
//	player host
//	player join <code>

package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/ripoff-robots/internal/board"
	"github.com/robalobadob/ripoff-robots/internal/config"
	"github.com/robalobadob/ripoff-robots/internal/rng"
	"github.com/robalobadob/ripoff-robots/internal/session"
	"github.com/robalobadob/ripoff-robots/internal/store"
	"github.com/robalobadob/ripoff-robots/internal/transport/wsnet"
)

func main() {
	cfg := config.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	cfg.ApplyLogLevel()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open round history")
	}
	defer db.Close()

	var src rng.Source = rng.New()
	if cfg.BoardDaily {
		src = rng.Daily(time.Now(), cfg.DailySalt)
		log.Info().Str("date", rng.DateKey(time.Now())).Msg("daily board")
	}

	network := wsnet.New(cfg.RelayURL)
	network.Passphrase = cfg.Passphrase
	sess, err := session.New(session.Options{
		Network:   network,
		Name:      cfg.PlayerName,
		Width:     cfg.BoardWidth,
		Height:    cfg.BoardHeight,
		Generator: board.NewGenerator(src),
		Store:     db,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create session")
	}
	go func() { _ = sess.Run(ctx) }()

	p := &player{
		sess:  sess,
		store: db,
		now:   time.Now,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		out:   os.Stdout,
	}
	sess.Subscribe(p.notify)

	if len(os.Args) > 1 {
		if err := p.exec(ctx, strings.Join(os.Args[1:], " ")); err != nil {
			log.Fatal().Err(err).Msg(os.Args[1])
		}
	}

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = sess.Close()
			return
		case line, ok := <-lines:
			if !ok {
				_ = sess.Close()
				return
			}
			if err := p.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					_ = sess.Close()
					return
				}
				p.printf("error: %v\n", err)
			}
		}
	}
}
