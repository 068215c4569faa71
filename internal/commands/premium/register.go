package premium

import "github.com/PancyStudios/PancyPremiumGo/pkg/discord"

// Register registers all premium commands as /premium subcommands
func Register(client *discord.ExtendedClient) {
	// Build the /premium command group with all subcommands
	premiumGroup := client.CommandHandler.BuildCommandGroup(
		"premium",
		"Comandos premium",
		createRedeemCommand(),
		createSetRoleCommand(),
		createStatusCommand(),
	)

	// Register the command group
	client.CommandHandler.AddGlobalCommand(premiumGroup)
}
