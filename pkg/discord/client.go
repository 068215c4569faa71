// Package discord provides the Discord bot clients and related structures.
// It wraps discordgo with command dispatch, authorization and role management.
package discord

import (
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/config"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// discordgo.Logger is a function, not an interface
func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		default:
			logger.Debug(msg, "DiscordGo")
		}
	}
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	StartTime      time.Time
	mu             sync.RWMutex
	isReady        bool
	readyHooks     []func(*discordgo.Session, *discordgo.Ready)
	onStatus       func()
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command)
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:  session,
		Commands: NewCommandCollection(),
		isReady:  false,
	}

	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// Start opens the gateway connection. Commands are pushed to Discord on
// every Ready.
func (c *ExtendedClient) Start() error {
	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.setReady(true)
		logger.Success("Bot conectado como: "+r.User.Username, "Client")
		c.CommandHandler.RegisterCommands()
		for _, hook := range c.hooks() {
			hook(s, r)
		}
	})
	c.Session.AddHandler(func(s *discordgo.Session, _ *discordgo.Resumed) {
		c.setReady(true)
	})
	c.Session.AddHandler(func(s *discordgo.Session, _ *discordgo.Disconnect) {
		c.setReady(false)
		logger.Warn("Conexión con el gateway perdida", "Client")
	})

	c.Session.AddHandler(c.handleInteraction)

	c.StartTime = time.Now()

	return c.Session.Open()
}

// commandName builds the collection key, "group.sub" for subcommands
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) > 0 {
		opt := data.Options[0]
		if opt.Type == discordgo.ApplicationCommandOptionSubCommandGroup {
			if len(opt.Options) > 0 {
				name = data.Name + "." + opt.Name + "." + opt.Options[0].Name
			}
		} else if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			name = data.Name + "." + opt.Name
		}
	}
	return name
}

// handleInteraction handles incoming Discord interactions
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := commandName(i.ApplicationCommandData())

	cmd, ok := c.Commands.Get(name)
	if !ok {
		logger.Warn("Comando no encontrado: "+name, "Client")
		return
	}

	ctx := &CommandContext{
		Session:     s,
		Interaction: i,
		Client:      c,
	}

	if err := c.GuardMiddleware(ctx, cmd); err != nil {
		return
	}

	if err := cmd.Run(ctx); err != nil {
		logger.Error("Error ejecutando el comando "+name+": "+err.Error(), "Client")
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.setReady(false)

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

func (c *ExtendedClient) setReady(ready bool) {
	c.mu.Lock()
	c.isReady = ready
	notify := c.onStatus
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// addReadyHook queues fn to run after the client is marked ready and its
// commands are synced
func (c *ExtendedClient) addReadyHook(fn func(*discordgo.Session, *discordgo.Ready)) {
	c.mu.Lock()
	c.readyHooks = append(c.readyHooks, fn)
	c.mu.Unlock()
}

func (c *ExtendedClient) hooks() []func(*discordgo.Session, *discordgo.Ready) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]func(*discordgo.Session, *discordgo.Ready){}, c.readyHooks...)
}

// OnStatusChange sets a callback invoked whenever the ready flag changes
func (c *ExtendedClient) OnStatusChange(fn func()) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// HasGuild reports whether this connection has guildID in its state
func (c *ExtendedClient) HasGuild(guildID string) bool {
	if c.Session == nil || c.Session.State == nil {
		return false
	}
	_, err := c.Session.State.Guild(guildID)
	return err == nil
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// Username returns the bot user's name once connected
func (c *ExtendedClient) Username() string {
	if c.Session == nil || c.Session.State == nil || c.Session.State.User == nil {
		return "desconocido"
	}
	return c.Session.State.User.Username
}

// GetConfig returns the bot configuration
func (c *ExtendedClient) GetConfig() *config.Config {
	return config.Get()
}
