// Package telegramchannel is the Telegram transport for the
// notification and pairing fabric (C12): it polls the shared Queue and
// forwards unread entries to one chat, and lets that chat redeem
// pairing codes with /pair <code>.
//
// Grounded on internal/channels/telegram's bot construction and
// long-polling loop (telego.NewBot, UpdatesViaLongPolling), simplified
// to the single-chat broadcast-and-pair use case this fabric needs —
// the teacher's per-message streaming, group history, and menu-command
// sync belong to its own chat product, not this notification transport.
package telegramchannel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify"
)

const pollInterval = 5 * time.Second

// Channel forwards unread notifications to a single Telegram chat and
// accepts /pair redemptions from it.
type Channel struct {
	bot      *telego.Bot
	queue    *notify.Queue
	pairings *notify.PairingStore
	chatID   int64
	cancel   context.CancelFunc
	done     chan struct{}
}

// New constructs a Channel from config. cfg.Token must be set by the
// caller (config.Load leaves it unset unless TELEGRAM_BOT_TOKEN is in
// the environment).
func New(cfg config.TelegramConfig, queue *notify.Queue, pairings *notify.PairingStore) (*Channel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Channel{bot: bot, queue: queue, pairings: pairings, chatID: cfg.ChatID}, nil
}

func (c *Channel) Name() string { return "telegram" }

// Start launches the long-polling loop and the broadcast ticker in
// background goroutines and returns once both are running.
func (c *Channel) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start telegram long polling: %w", err)
	}

	go c.runUpdates(pollCtx, updates)
	go c.runBroadcast(pollCtx)
	slog.Info("telegram channel started", "username", c.bot.Username())
	return nil
}

func (c *Channel) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		<-c.done
	}
	return nil
}

func (c *Channel) runUpdates(ctx context.Context, updates <-chan telego.Update) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			c.handleMessage(ctx, update.Message)
		}
	}
}

func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/pair") {
		code := strings.TrimSpace(strings.TrimPrefix(text, "/pair"))
		c.handlePair(ctx, msg.Chat.ID, code)
		return
	}
}

func (c *Channel) handlePair(ctx context.Context, chatID int64, code string) {
	if code == "" {
		c.send(ctx, chatID, "usage: /pair <code>")
		return
	}
	project, session, ok, err := c.pairings.Consume(ctx, code)
	if err != nil {
		c.send(ctx, chatID, fmt.Sprintf("pairing failed: %s", err))
		return
	}
	if !ok {
		c.send(ctx, chatID, "that code is unknown or expired")
		return
	}
	c.chatID = chatID
	c.send(ctx, chatID, fmt.Sprintf("paired to project %q, session %q — notifications will arrive here", project, session))
}

// runBroadcast polls the queue for this chat's unread entries and sends
// each one, marking it read immediately after a successful send.
func (c *Channel) runBroadcast(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flushUnread(ctx)
		}
	}
}

func (c *Channel) flushUnread(ctx context.Context) {
	if c.chatID == 0 {
		return
	}
	unread, err := c.queue.GetUnread(ctx, c.Name())
	if err != nil {
		slog.Warn("telegram: failed to read notification queue", "error", err)
		return
	}
	for _, n := range unread {
		if err := c.send(ctx, c.chatID, n.Message); err != nil {
			slog.Warn("telegram: failed to deliver notification", "id", n.ID, "error", err)
			continue
		}
		if err := c.queue.MarkRead(ctx, c.Name(), []string{n.ID}); err != nil {
			slog.Warn("telegram: failed to mark notification read", "id", n.ID, "error", err)
		}
	}
}

func (c *Channel) send(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}
