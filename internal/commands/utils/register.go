package utils

import (
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
)

// Register registers all utility commands as /utils subcommands
func Register(client *discord.ExtendedClient) {
	utilsGroup := client.CommandHandler.BuildCommandGroup(
		"utils",
		"Comandos de utilidad",
		createInviteCommand(),
		createPingCommand(),
	)

	client.CommandHandler.AddGlobalCommand(utilsGroup)
}
