package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/servis/recharge-bot/internal/domain/recharge"
)

// Event kinds.
const (
	KindStart   = "start"
	KindPhoto   = "photo"
	KindCommand = "command"
)

// inbound is one update translated for the engine. Exactly one of the event
// fields is set, matching Kind.
type inbound struct {
	Kind      string
	SessionID string
	Start     recharge.StartEvent
	Photo     recharge.PhotoEvent
	Command   recharge.CommandEvent
}

// fromUpdate translates an update. ok is false for updates the engine does
// not care about (plain text, stickers, edits, callbacks).
func fromUpdate(u tgbotapi.Update) (inbound, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return inbound{}, false
	}

	sessionID := strconv.FormatInt(msg.Chat.ID, 10)
	sender := ""
	if msg.From != nil {
		sender = msg.From.UserName
	}

	if ref := imageReference(msg); ref != "" {
		return inbound{
			Kind:      KindPhoto,
			SessionID: sessionID,
			Photo: recharge.PhotoEvent{
				SessionID:      sessionID,
				SenderHandle:   sender,
				ImageReference: ref,
			},
		}, true
	}

	if !msg.IsCommand() {
		return inbound{}, false
	}

	args := strings.Fields(msg.CommandArguments())
	command := strings.ToLower(msg.Command())

	if command == "start" {
		return inbound{
			Kind:      KindStart,
			SessionID: sessionID,
			Start: recharge.StartEvent{
				SessionID:    sessionID,
				SenderHandle: sender,
				Args:         args,
			},
		}, true
	}

	return inbound{
		Kind:      KindCommand,
		SessionID: sessionID,
		Command: recharge.CommandEvent{
			SessionID:    sessionID,
			SenderHandle: sender,
			Command:      command,
			Args:         args,
		},
	}, true
}

// imageReference returns the file id of the largest photo size, or of an
// image sent as a document.
func imageReference(msg *tgbotapi.Message) string {
	if n := len(msg.Photo); n > 0 {
		return msg.Photo[n-1].FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}
