package events

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// joinWindow separates real joins from the GuildCreate burst sent on connect
const joinWindow = 10 * time.Second

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildCreate(onGuildCreate)
	client.EventHandler.OnGuildDelete(onGuildDelete)
}

// onGuildCreate is called when the bot joins a server
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !isNewJoin(g.Guild, time.Now()) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Miembros: %d | Canales: %d", g.MemberCount, len(g.Channels)), "Guild")

	if g.SystemChannelID == "" {
		return
	}

	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed()); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// onGuildDelete is called when the bot is removed from a server. The
// subscription is left in place; the sweep still expires it on schedule.
func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("Servidor %s no disponible temporalmente", g.ID), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
}

func isNewJoin(g *discordgo.Guild, now time.Time) bool {
	return g != nil && !g.JoinedAt.IsZero() && g.JoinedAt.After(now.Add(-joinWindow))
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🎉",
		Description: "Hola, soy **PancyPremium**. Activa las funciones premium de tu servidor con un código.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🎟️ Canjear",
				Value:  "Usa `/premium redeem` con tu código",
				Inline: true,
			},
			{
				Name:   "⭐ Rol VIP",
				Value:  "Un administrador configura el rol con `/premium setrole`",
				Inline: true,
			},
			{
				Name:   "📊 Estado",
				Value:  "Consulta la suscripción con `/premium status`",
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "¡Disfruta de PancyPremium!",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
