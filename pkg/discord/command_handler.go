// Package discord provides the command handler for loading and registering commands.
package discord

import (
	"fmt"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler manages command registration
type CommandHandler struct {
	client        *ExtendedClient
	slashCommands []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:        client,
		slashCommands: make([]*discordgo.ApplicationCommand, 0),
	}
}

// RegisterCommand adds a top-level command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)
	ch.slashCommands = append(ch.slashCommands, cmd.ToApplicationCommand())
	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

// BuildCommandGroup creates a command group with subcommands. The group is
// usable in DMs unless one of its subcommands requires a guild.
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))
	dmAllowed := true

	for _, cmd := range subcommands {
		fullName := name + "." + cmd.Name
		ch.client.Commands.Set(fullName, cmd)
		if cmd.GuildOnly || cmd.UserPermissions != 0 {
			dmAllowed = false
		}

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:         name,
		Description:  description,
		Options:      options,
		DMPermission: &dmAllowed,
	}
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// SlashCommands returns the commands that will be pushed to Discord
func (ch *CommandHandler) SlashCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

// appID returns the application ID of this bot
func (ch *CommandHandler) appID() (string, error) {
	s := ch.client.Session
	if s.State != nil && s.State.User != nil {
		return s.State.User.ID, nil
	}
	u, err := s.User("@me")
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// RegisterCommands pushes every slash command to Discord in one bulk
// overwrite, which also drops commands no longer defined
func (ch *CommandHandler) RegisterCommands() {
	logger.Info("🔄 Registrando comandos globales...", "CommandHandler")

	if err := ch.SyncCommands(); err != nil {
		logger.Error("Error registrando comandos: "+err.Error(), "CommandHandler")
		return
	}

	logger.Success(fmt.Sprintf("✅ %d comandos globales registrados.", len(ch.slashCommands)), "CommandHandler")
}

// SyncCommands replaces the global commands with the current definitions
func (ch *CommandHandler) SyncCommands() error {
	appID, err := ch.appID()
	if err != nil {
		return err
	}
	_, err = ch.client.Session.ApplicationCommandBulkOverwrite(appID, "", ch.slashCommands)
	return err
}

// ListGlobalCommands returns the global commands known to Discord
func (ch *CommandHandler) ListGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return ch.ListGuildCommands("")
}

// ListGuildCommands returns the commands registered in guildID
func (ch *CommandHandler) ListGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	appID, err := ch.appID()
	if err != nil {
		return nil, err
	}
	return ch.client.Session.ApplicationCommands(appID, guildID)
}

// UnregisterCommands removes all global commands from Discord
func (ch *CommandHandler) UnregisterCommands() error {
	return ch.UnregisterGuildCommands("")
}

// UnregisterGuildCommands removes every command registered in guildID
func (ch *CommandHandler) UnregisterGuildCommands(guildID string) error {
	appID, err := ch.appID()
	if err != nil {
		return err
	}

	commands, err := ch.client.Session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := ch.client.Session.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			logger.Error("Error eliminando comando "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d comandos eliminados.", len(commands)), "CommandHandler")
	return nil
}
