package events

import (
	"fmt"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const presence = "⭐ Premium con /premium redeem"

// RegisterReadyEvent registers the ready event handler
func RegisterReadyEvent(client *discord.ExtendedClient, deps Deps) {
	client.EventHandler.OnReady(onReady(deps))
}

// onReady runs once the bot is connected and its commands are synced
func onReady(deps Deps) discord.ReadyHandler {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Success(fmt.Sprintf("✅ Bot conectado: %s", r.User.Username), "Ready")
		logger.Info(fmt.Sprintf("📊 Conectado a %d servidores", len(r.Guilds)), "Ready")

		if deps.Sweeper != nil && deps.Sweeper.Start(deps.Ctx) {
			logger.System("⏱️ Barrido de expiraciones iniciado", "Ready")
		}

		if err := s.UpdateGameStatus(0, presence); err != nil {
			logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
			return
		}

		logger.Debug("Estado del bot establecido correctamente", "Ready")
	}
}
