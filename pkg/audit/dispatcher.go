// Package audit delivers subscription lifecycle events to the log, the
// Discord audit channel, MQTT and the live websocket feed.
package audit

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
	"github.com/goccy/go-json"
)

// TopicPrefix is prepended to the event type to build the MQTT topic
const TopicPrefix = "pancy/premium/events/"

const queueSize = 256

// EmbedSender posts embeds to a Discord channel
type EmbedSender interface {
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
}

// Publisher publishes a payload on an MQTT topic
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// Broadcaster pushes raw messages to connected websocket clients
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithDiscord sends embeds to channelID. An empty channel disables it.
func WithDiscord(sender EmbedSender, channelID string) Option {
	return func(d *Dispatcher) {
		d.discord = sender
		d.channelID = channelID
	}
}

// WithPublisher publishes every event on MQTT
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithBroadcaster streams every event to websocket clients
func WithBroadcaster(b Broadcaster) Option {
	return func(d *Dispatcher) { d.hub = b }
}

// WithGuildNames resolves guild IDs to names for embeds
func WithGuildNames(fn func(guildID string) string) Option {
	return func(d *Dispatcher) { d.guildName = fn }
}

// WithFooter sets the embed footer
func WithFooter(footer string) Option {
	return func(d *Dispatcher) { d.footer = footer }
}

// Dispatcher is a subscription.Notifier fanning events out to every sink
// from a single background worker, in emission order
type Dispatcher struct {
	discord   EmbedSender
	channelID string
	publisher Publisher
	hub       Broadcaster
	guildName func(string) string
	footer    string

	mu     sync.Mutex
	closed bool
	queue  chan subscription.Event
	done   chan struct{}
}

var _ subscription.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates and starts a Dispatcher
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		footer: "PancyPremium",
		queue:  make(chan subscription.Event, queueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Notify enqueues ev without blocking. Events are dropped when the queue
// is full or the dispatcher is closed.
func (d *Dispatcher) Notify(_ context.Context, ev subscription.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- ev:
	default:
		logger.Warn(fmt.Sprintf("Cola de auditoría llena, evento descartado: %s", Summary(ev)), "Audit")
	}
}

// Close stops accepting events and waits until queued ones are delivered
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		d.deliver(ev)
	}
}

// deliver sends ev to every sink. A failing or panicking sink never
// prevents the others.
func (d *Dispatcher) deliver(ev subscription.Event) {
	logger.Info(Summary(ev), "Audit")

	if d.discord != nil && d.channelID != "" {
		err := apperrors.Guard(func() error {
			name := ""
			if d.guildName != nil && ev.GuildID != "" {
				name = d.guildName(ev.GuildID)
			}
			return d.discord.SendEmbed(d.channelID, BuildEmbed(ev, name, d.footer))
		})
		if err != nil {
			logger.Warn(fmt.Sprintf("No se pudo enviar el log al canal %s: %v", d.channelID, err), "Audit")
		}
	}

	public := redact(ev)

	if d.publisher != nil {
		err := apperrors.Guard(func() error {
			return d.publisher.Publish(TopicPrefix+string(public.Type), public)
		})
		if err != nil {
			logger.Warn(fmt.Sprintf("No se pudo publicar %s en MQTT: %v", ev.Type, err), "Audit")
		}
	}

	if d.hub != nil {
		payload, err := json.Marshal(public)
		if err != nil {
			logger.Error(fmt.Sprintf("Error serializando evento %s: %v", ev.ID, err), "Audit")
			return
		}
		d.hub.Broadcast(payload)
	}
}

// redact strips what must stay between the owner and the audit channel.
// A freshly generated code is redeemable by whoever reads it.
func redact(ev subscription.Event) subscription.Event {
	if ev.Type == subscription.EventCodeGenerated {
		ev.Code = ""
	}
	return ev
}
