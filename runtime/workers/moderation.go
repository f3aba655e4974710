package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"context"
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

var _ contract.Worker = (*ModerationWorker)(nil)

// ModerationWorker sits between the engine and the fanout. Raw chat events
// are censored and tagged with their detected language; every other event
// passes through untouched.
type ModerationWorker struct {
	moderator moderation.Moderator
	rawEvents chan event.DomainEvent
	events    chan event.DomainEvent
	log       *slog.Logger
}

func NewModerationWorker(moderator moderation.Moderator,
	rawEvents, events chan event.DomainEvent, log *slog.Logger) *ModerationWorker {
	return &ModerationWorker{
		moderator: moderator,
		rawEvents: rawEvents,
		events:    events,
		log:       log,
	}
}

func (w ModerationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case e, ok := <-w.rawEvents:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if posted, isChat := e.(event.MessagePosted); isChat {
				e = w.toChatBroadcast(posted)
			}
			select {
			case <-ctx.Done():
				w.log.Debug("Stopping worker")
				return ctx.Err()
			case w.events <- e:
			}
		}
	}
}

func (w ModerationWorker) toChatBroadcast(evt event.MessagePosted) event.ChatBroadcast {
	info := whatlanggo.Detect(evt.Content)
	langCode := info.Lang.Iso6391()

	sanitized, foundWords := w.moderator.Censor(evt.Content)
	if len(foundWords) > 0 {
		w.log.Info("Censored message content",
			"author", evt.Author,
			"words", len(foundWords),
			"lang", langCode)
	}

	return event.ChatBroadcast{
		ID:            evt.ID,
		Author:        evt.Author,
		Content:       sanitized,
		Lang:          langCode,
		CensoredWords: foundWords,
		At:            evt.At,
	}
}
