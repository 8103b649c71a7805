package main

import (
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/ripoff-robots/internal/config"
	"github.com/robalobadob/ripoff-robots/internal/relay"
)

func main() {
	cfg := config.Load()
	cfg.ApplyLogLevel()

	srv := relay.New(relay.Options{
		Secret:       cfg.JWTSecret,
		TicketTTL:    cfg.RoomTicketTTL,
		ClientOrigin: cfg.ClientOrigin,
	})
	log.Info().Str("port", cfg.Port).Msg("starting ripoff-robots relay")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
