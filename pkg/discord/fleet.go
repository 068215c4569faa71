package discord

import (
	"fmt"
	"sync"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/metrics"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// ErrNoReadyClient is returned when no bot connection can serve a request
var ErrNoReadyClient = errors.New("ninguna conexión de bot está lista")

// Fleet runs one ExtendedClient per bot token against the same database
type Fleet struct {
	clients []*ExtendedClient
}

var (
	fleet     *Fleet
	fleetOnce sync.Once
)

// Init initializes the global fleet
func Init(tokens []string) (*Fleet, error) {
	var err error
	fleetOnce.Do(func() {
		fleet, err = NewFleet(tokens)
	})
	return fleet, err
}

// Get returns the global fleet
func Get() *Fleet {
	return fleet
}

// NewFleet creates a client per token without connecting
func NewFleet(tokens []string) (*Fleet, error) {
	if len(tokens) == 0 {
		return nil, errors.New("no se configuró ningún token (DISCORD_BOT_TOKENS)")
	}

	f := &Fleet{}
	for i, token := range tokens {
		c, err := NewClient(token)
		if err != nil {
			return nil, errors.Wrapf(err, "creando cliente %d", i+1)
		}
		c.OnStatusChange(f.RefreshReadyGauge)
		f.clients = append(f.clients, c)
	}
	return f, nil
}

// Clients returns every client in the fleet
func (f *Fleet) Clients() []*ExtendedClient {
	return f.clients
}

// Start connects every client. It only fails when none could connect.
func (f *Fleet) Start() error {
	started := 0
	for i, c := range f.clients {
		if err := c.Start(); err != nil {
			logger.Error(fmt.Sprintf("Error iniciando el bot %d: %v", i+1, err), "Fleet")
			continue
		}
		started++
	}
	if started == 0 {
		return errors.New("no se pudo iniciar ningún bot")
	}
	logger.Success(fmt.Sprintf("%d/%d bots iniciados", started, len(f.clients)), "Fleet")
	return nil
}

// Stop closes every connection
func (f *Fleet) Stop() {
	for _, c := range f.clients {
		if err := c.Stop(); err != nil {
			logger.Warn("Error cerrando sesión: "+err.Error(), "Fleet")
		}
	}
	metrics.ReadyBots.Set(0)
}

// Total returns the number of configured bots
func (f *Fleet) Total() int {
	return len(f.clients)
}

// ReadyCount returns the number of connected bots
func (f *Fleet) ReadyCount() int {
	n := 0
	for _, c := range f.clients {
		if c.IsReady() {
			n++
		}
	}
	return n
}

// AnyReady reports whether at least one bot is connected
func (f *Fleet) AnyReady() bool {
	return f.ReadyCount() > 0
}

// RefreshReadyGauge publishes the current ready count
func (f *Fleet) RefreshReadyGauge() {
	metrics.ReadyBots.Set(float64(f.ReadyCount()))
}

// clientFor picks a ready client that is a member of guildID, falling
// back to any ready client when guildID is empty or unknown to all of them
func (f *Fleet) clientFor(guildID string) (*ExtendedClient, error) {
	var fallback *ExtendedClient
	for _, c := range f.clients {
		if !c.IsReady() {
			continue
		}
		if guildID != "" && c.HasGuild(guildID) {
			return c, nil
		}
		if fallback == nil {
			fallback = c
		}
	}
	if fallback == nil {
		return nil, ErrNoReadyClient
	}
	return fallback, nil
}

// GuildName resolves a guild name from any connection's state, falling back
// to the ID
func (f *Fleet) GuildName(guildID string) string {
	for _, c := range f.clients {
		if c.Session == nil || c.Session.State == nil {
			continue
		}
		if g, err := c.Session.State.Guild(guildID); err == nil && g.Name != "" {
			return g.Name
		}
	}
	return guildID
}

// SendEmbed posts embed to a channel through any ready client
func (f *Fleet) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	c, err := f.clientFor("")
	if err != nil {
		return err
	}
	_, err = c.Session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// SendDM sends embed in a direct message to userID
func (f *Fleet) SendDM(userID string, embed *discordgo.MessageEmbed) error {
	c, err := f.clientFor("")
	if err != nil {
		return err
	}
	return sendDM(c.Session, userID, embed)
}

func sendDM(s *discordgo.Session, userID string, embed *discordgo.MessageEmbed) error {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		return errors.Wrap(err, "abriendo DM")
	}
	_, err = s.ChannelMessageSendEmbed(ch.ID, embed)
	return err
}
