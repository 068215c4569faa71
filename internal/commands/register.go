// Package commands wires every slash command group into a client.
// Commands are organized in subdirectories by category.
package commands

import (
	"github.com/PancyStudios/PancyPremiumGo/internal/commands/dev"
	"github.com/PancyStudios/PancyPremiumGo/internal/commands/premium"
	"github.com/PancyStudios/PancyPremiumGo/internal/commands/utils"
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient) {
	// /premium redeem, setrole, status
	premium.Register(client)

	// /dev codegen, codelist, codedel (owner only)
	dev.Register(client)

	// /utils invite, ping
	utils.Register(client)
}
