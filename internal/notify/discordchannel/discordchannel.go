// Package discordchannel is the Discord transport for the notification
// and pairing fabric (C12): it polls the shared Queue and forwards
// unread entries to one channel, and accepts /pair <code> messages
// posted there to bind it to a session.
//
// Grounded on internal/channels/discord's session construction
// (discordgo.New, Identify.Intents, AddHandler/Open), simplified to the
// single-channel broadcast-and-pair use case this fabric needs.
package discordchannel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify"
)

const pollInterval = 5 * time.Second

// Channel forwards unread notifications to a single Discord channel and
// accepts /pair redemptions from it.
type Channel struct {
	session   *discordgo.Session
	queue     *notify.Queue
	pairings  *notify.PairingStore
	channelID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// New constructs a Channel from config. cfg.Token must be set by the
// caller (config.Load leaves it unset unless DISCORD_BOT_TOKEN is in
// the environment).
func New(cfg config.DiscordConfig, queue *notify.Queue, pairings *notify.PairingStore) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return &Channel{session: session, queue: queue, pairings: pairings, channelID: cfg.ChannelID}, nil
}

func (c *Channel) Name() string { return "discord" }

func (c *Channel) Start(ctx context.Context) error {
	c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author != nil && m.Author.Bot {
			return
		}
		c.handleMessage(ctx, m)
	})
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.runBroadcast(runCtx)

	slog.Info("discord channel started")
	return nil
}

func (c *Channel) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		<-c.done
	}
	return c.session.Close()
}

func (c *Channel) handleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	text := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(text, "/pair") {
		return
	}
	code := strings.TrimSpace(strings.TrimPrefix(text, "/pair"))
	if code == "" {
		c.send(m.ChannelID, "usage: /pair <code>")
		return
	}
	project, session, ok, err := c.pairings.Consume(ctx, code)
	if err != nil {
		c.send(m.ChannelID, fmt.Sprintf("pairing failed: %s", err))
		return
	}
	if !ok {
		c.send(m.ChannelID, "that code is unknown or expired")
		return
	}
	c.channelID = m.ChannelID
	c.send(m.ChannelID, fmt.Sprintf("paired to project %q, session %q — notifications will arrive here", project, session))
}

func (c *Channel) runBroadcast(ctx context.Context) {
	defer close(c.done)
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
	if c.channelID == "" {
		return
	}
	unread, err := c.queue.GetUnread(ctx, c.Name())
	if err != nil {
		slog.Warn("discord: failed to read notification queue", "error", err)
		return
	}
	for _, n := range unread {
		if err := c.send(c.channelID, n.Message); err != nil {
			slog.Warn("discord: failed to deliver notification", "id", n.ID, "error", err)
			continue
		}
		if err := c.queue.MarkRead(ctx, c.Name(), []string{n.ID}); err != nil {
			slog.Warn("discord: failed to mark notification read", "id", n.ID, "error", err)
		}
	}
}

func (c *Channel) send(channelID, text string) error {
	_, err := c.session.ChannelMessageSend(channelID, text)
	return err
}
