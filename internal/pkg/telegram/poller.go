package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/servis/recharge-bot/internal/domain/recharge"
	"github.com/servis/recharge-bot/internal/pkg/logger"
)

const defaultConcurrency = 64

// Handler is implemented by *recharge.Engine.
type Handler interface {
	HandleStart(ctx context.Context, ev recharge.StartEvent) error
	HandlePhoto(ctx context.Context, ev recharge.PhotoEvent) error
	HandleCommand(ctx context.Context, ev recharge.CommandEvent) error
}

type updatesAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller long-polls Telegram. Updates of one chat are handled in arrival
// order; different chats run in parallel, at most concurrency at a time.
type Poller struct {
	api         updatesAPI
	handler     Handler
	concurrency int
	timeout     int
}

func NewPoller(api updatesAPI, handler Handler, concurrency int) *Poller {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Poller{api: api, handler: handler, concurrency: concurrency, timeout: 60}
}

// Run blocks until ctx is cancelled or the update channel closes, then waits
// until every received update has been handled.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.api.GetUpdatesChan(cfg)

	// Received updates are already confirmed to Telegram, so handlers keep
	// running on shutdown instead of failing on a cancelled context.
	handlerCtx := context.WithoutCancel(ctx)
	queues := newChatQueues(p.concurrency, func(u queuedUpdate) {
		p.dispatch(handlerCtx, u.updateID, u.in)
	})

	logger.FromContext(ctx).Info().Int("concurrency", p.concurrency).Msg("Telegram poller started")

loop:
	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			break loop
		case u, ok := <-updates:
			if !ok {
				break loop
			}
			in, ok := fromUpdate(u)
			if !ok {
				continue
			}
			queues.push(queuedUpdate{updateID: u.UpdateID, in: in})
		}
	}

	queues.wait()
	logger.FromContext(ctx).Info().Msg("Telegram poller stopped")
	return nil
}

func (p *Poller) dispatch(ctx context.Context, updateID int, in inbound) {
	ctx = logger.WithFields(ctx, map[string]string{
		"event_id":   uuid.New().String(),
		"session_id": in.SessionID,
		"kind":       in.Kind,
		"update_id":  fmt.Sprint(updateID),
	})
	log := logger.FromContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("update handler panicked")
		}
	}()

	var err error
	switch in.Kind {
	case KindStart:
		err = p.handler.HandleStart(ctx, in.Start)
	case KindPhoto:
		err = p.handler.HandlePhoto(ctx, in.Photo)
	case KindCommand:
		err = p.handler.HandleCommand(ctx, in.Command)
	}
	if err != nil {
		log.Warn().Err(err).Msg("update handling failed")
		return
	}
	log.Debug().Msg("update handled")
}
