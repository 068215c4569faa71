// Package main provides a utility to sync Discord slash commands.
// This removes stale commands from Discord and ensures only currently-defined commands are registered.
//
// Usage:
//
//	go run ./cmd/sync-commands [options]
//
// Options:
//
//	-list           List all registered commands (global and guild)
//	-clean          Remove all commands without registering new ones
//	-guild <id>     Target a specific guild instead of global commands
//	-bot <n>        Bot token index in DISCORD_BOT_TOKENS (0 for all)
//	-sync           Sync commands (remove stale, register current) - default behavior
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/PancyStudios/PancyPremiumGo/internal/commands"
	"github.com/PancyStudios/PancyPremiumGo/pkg/config"
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func main() {
	// Parse command line flags
	listCmd := flag.Bool("list", false, "List all registered commands")
	cleanCmd := flag.Bool("clean", false, "Remove all commands without registering new ones")
	guildID := flag.String("guild", "", "Target a specific guild (leave empty for global)")
	botIndex := flag.Int("bot", 0, "Bot token index, starting at 1 (0 targets every bot)")
	syncCmd := flag.Bool("sync", false, "Sync commands (remove stale, register current)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System("Iniciando utilidad de sincronización de comandos...", "SyncCommands")

	tokens, err := selectTokens(cfg.BotTokens, *botIndex)
	if err != nil {
		logger.Critical(err.Error(), "SyncCommands")
		os.Exit(1)
	}

	fleet, err := discord.NewFleet(tokens)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord clients: %v", err), "SyncCommands")
		os.Exit(1)
	}

	for i, client := range fleet.Clients() {
		// Open connection to Discord
		if err := client.Session.Open(); err != nil {
			logger.Error(fmt.Sprintf("Error connecting bot %d to Discord: %v", i+1, err), "SyncCommands")
			continue
		}

		logger.Success(fmt.Sprintf("Conectado a Discord como %s", client.Username()), "SyncCommands")

		// Register commands to know what we should have
		commands.RegisterAll(client)

		// Execute the requested action
		switch {
		case *listCmd:
			listCommands(client, *guildID)
		case *cleanCmd:
			cleanCommands(client, *guildID)
		case *syncCmd:
			syncCommands(client, *guildID)
		default:
			// Default: sync commands
			syncCommands(client, *guildID)
		}

		if err := client.Session.Close(); err != nil {
			logger.Warn(fmt.Sprintf("Error cerrando sesión: %v", err), "SyncCommands")
		}
	}

	logger.Success("Operación completada exitosamente", "SyncCommands")
}

// selectTokens narrows the configured tokens to the one picked with -bot
func selectTokens(tokens []string, index int) ([]string, error) {
	if index == 0 {
		return tokens, nil
	}
	if index < 0 || index > len(tokens) {
		return nil, fmt.Errorf("índice de bot %d fuera de rango (1-%d)", index, len(tokens))
	}
	return tokens[index-1 : index], nil
}

// listCommands lists all commands registered with Discord
func listCommands(client *discord.ExtendedClient, guildID string) {
	logger.Info("📋 Listando comandos registrados...", "SyncCommands")

	var cmds []*discordgo.ApplicationCommand
	var err error

	if guildID != "" {
		logger.Info(fmt.Sprintf("Obteniendo comandos del servidor: %s", guildID), "SyncCommands")
		cmds, err = client.CommandHandler.ListGuildCommands(guildID)
	} else {
		logger.Info("Obteniendo comandos globales", "SyncCommands")
		cmds, err = client.CommandHandler.ListGlobalCommands()
	}

	if err != nil {
		logger.Error(fmt.Sprintf("Error obteniendo comandos: %v", err), "SyncCommands")
		return
	}

	if len(cmds) == 0 {
		logger.Info("No hay comandos registrados", "SyncCommands")
		return
	}

	logger.Info(fmt.Sprintf("Comandos encontrados: %d", len(cmds)), "SyncCommands")
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), "SyncCommands")
	}
}

// cleanCommands removes all commands from Discord
func cleanCommands(client *discord.ExtendedClient, guildID string) {
	logger.Info("🧹 Eliminando todos los comandos...", "SyncCommands")

	var err error
	if guildID != "" {
		logger.Info(fmt.Sprintf("Eliminando comandos del servidor: %s", guildID), "SyncCommands")
		err = client.CommandHandler.UnregisterGuildCommands(guildID)
	} else {
		logger.Info("Eliminando comandos globales", "SyncCommands")
		err = client.CommandHandler.UnregisterCommands()
	}

	if err != nil {
		logger.Error(fmt.Sprintf("Error eliminando comandos: %v", err), "SyncCommands")
		return
	}

	logger.Success("✅ Todos los comandos han sido eliminados", "SyncCommands")
}

// syncCommands removes stale commands and registers current ones. Every
// command is global, so a guild target only clears leftovers there.
func syncCommands(client *discord.ExtendedClient, guildID string) {
	logger.Info("🔄 Sincronizando comandos...", "SyncCommands")

	if guildID != "" {
		logger.Info(fmt.Sprintf("Eliminando comandos del servidor: %s", guildID), "SyncCommands")
		if err := client.CommandHandler.UnregisterGuildCommands(guildID); err != nil {
			logger.Error(fmt.Sprintf("Error eliminando comandos de guild: %v", err), "SyncCommands")
			return
		}
		logger.Success("✅ Comandos de guild eliminados", "SyncCommands")
		return
	}

	if err := client.CommandHandler.SyncCommands(); err != nil {
		logger.Error(fmt.Sprintf("Error sincronizando comandos: %v", err), "SyncCommands")
		return
	}
	logger.Success("✅ Comandos sincronizados correctamente", "SyncCommands")
}
