package database

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NewNats connects to NATS. Returns nil if natsURL is empty (ledger events
// are optional).
func NewNats(natsURL string) (*nats.Conn, error) {
	if natsURL == "" {
		log.Warn().Msg("NATS URL not configured, ledger events disabled")
		return nil, nil
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("recharge-bot"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
	return nc, nil
}

// CloseNats drains and closes the NATS connection
func CloseNats(nc *nats.Conn) {
	if nc == nil {
		return
	}
	if err := nc.Drain(); err != nil {
		log.Error().Err(err).Msg("Error draining NATS connection")
		nc.Close()
		return
	}
	log.Info().Msg("NATS connection closed")
}
