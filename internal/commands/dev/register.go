package dev

import (
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
)

// Register registers all dev commands as /dev subcommands. They are global
// so the owner can run them from DMs; the guard rejects everyone else.
func Register(client *discord.ExtendedClient) {
	devGroup := client.CommandHandler.BuildCommandGroup(
		"dev",
		"Comandos de desarrollo",
		CreateCodeGenCommand(),
		CreateCodeListCommand(),
		CreateCodeDelCommand(),
	)

	client.CommandHandler.AddGlobalCommand(devGroup)
}
