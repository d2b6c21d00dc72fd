// Package telegram adapts the Telegram Bot API to the recharge engine.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects captions longer than this.
const maxCaptionRunes = 1024

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends texts and photos to chats. Session ids are numeric chat ids;
// "@channel" usernames are accepted for the staff chat.
type Notifier struct {
	api sender
}

func NewNotifier(api sender) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) SendText(ctx context.Context, sessionID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if chatID, username, err := parseTarget(sessionID); err != nil {
		return err
	} else if username != "" {
		msg = tgbotapi.NewMessageToChannel(username, text)
	} else {
		msg = tgbotapi.NewMessage(chatID, text)
	}
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send text to %s: %w", sessionID, err)
	}
	return nil
}

// SendPhoto re-sends an already uploaded photo by its file id.
func (n *Notifier) SendPhoto(ctx context.Context, sessionID, imageRef, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if imageRef == "" {
		return n.SendText(ctx, sessionID, caption)
	}

	chatID, username, err := parseTarget(sessionID)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(imageRef))
	if username != "" {
		photo.ChannelUsername = username
	}
	photo.Caption = truncateRunes(caption, maxCaptionRunes)

	if _, err := n.api.Send(photo); err != nil {
		return fmt.Errorf("telegram: send photo to %s: %w", sessionID, err)
	}
	return nil
}

func parseTarget(sessionID string) (int64, string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if strings.HasPrefix(sessionID, "@") && len(sessionID) > 1 {
		return 0, sessionID, nil
	}
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("telegram: invalid chat id %q", sessionID)
	}
	return chatID, "", nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
