package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tsumugi/internal/voice"
)

// Notifier posts text messages, at most limit per window across all channels.
type Notifier struct {
	send    func(channelID, message string) error
	limiter *rate.Limiter
	log     zerolog.Logger
}

func (b *Bot) Notifier() *Notifier {
	send := func(channelID, message string) error {
		_, err := b.dg.ChannelMessageSend(channelID, message)
		return err
	}
	return newNotifier(send, b.cfg.MessageRateLimit, b.cfg.MessageRateWindow, b.log)
}

func newNotifier(send func(channelID, message string) error, limit int, window time.Duration, logger zerolog.Logger) *Notifier {
	return &Notifier{
		send:    send,
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
		log:     logger,
	}
}

func (n *Notifier) Send(ctx context.Context, channelID, message string) error {
	if channelID == "" {
		return fmt.Errorf("%w: no channel", voice.ErrNotificationDeliveryFailed)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", voice.ErrNotificationDeliveryFailed, err)
	}
	if err := n.send(channelID, message); err != nil {
		return fmt.Errorf("%w: %w", voice.ErrNotificationDeliveryFailed, err)
	}
	n.log.Debug().Str("channel_id", channelID).Msg("notification sent")
	return nil
}
