package premium

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
)

// createStatusCommand creates the /premium status command
func createStatusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado de la suscripción premium del servidor",
		"premium",
		statusHandler,
	).RequiresGuild()
}

func statusHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		if err := ctx.DeferEphemeral(); err != nil {
			logger.Error(fmt.Sprintf("Error difiriendo respuesta: %v", err), "Premium")
			return
		}

		c, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		report, err := subscription.Get().Status(c, ctx.Interaction.GuildID)
		if err != nil {
			logger.Error(fmt.Sprintf("Error leyendo el estado premium de %s: %v", ctx.Interaction.GuildID, err), "Premium")
			editReply(ctx, redeemErrorEmbed(err, ""))
			return
		}

		editReply(ctx, statusEmbed(ctx.GuildName(), report))
	}()
	return nil
}

func statusColor(state subscription.State) int {
	switch state {
	case subscription.StateActive:
		return colorSuccess
	case subscription.StatePendingRoleBinding:
		return colorPremium
	case subscription.StateExpiringSoon:
		return colorWarning
	case subscription.StateExpired:
		return colorError
	default:
		return 0x95A5A6
	}
}

// statusEmbed renders the derived subscription state of a guild
func statusEmbed(guildName string, report *subscription.StatusReport) *discordgo.MessageEmbed {
	sub := report.Subscription
	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("⭐ Premium de %s", guildName),
		Color:     statusColor(report.State),
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Estado", Value: report.State.Label(), Inline: true},
		},
	}

	if report.State == subscription.StateNoSubscription {
		embed.Description = "Este servidor no tiene suscripción premium. Canjea un código con `/premium redeem`."
		return embed
	}

	end := sub.SubscriptionEndDate
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Expira", Value: fmt.Sprintf("%s (%s)", timestamp(end, "F"), timestamp(end, "R")), Inline: true},
	)

	role := "Sin configurar (`/premium setrole`)"
	if sub.VIPRoleID != "" {
		role = fmt.Sprintf("<@&%s>", sub.VIPRoleID)
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Rol premium", Value: role, Inline: true})

	if sub.RedeemingAdminID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Canjeado por", Value: fmt.Sprintf("<@%s>", sub.RedeemingAdminID), Inline: true,
		})
	}

	if report.Remaining > 0 {
		days := int(report.Remaining.Hours() / 24)
		hours := int(report.Remaining.Hours()) % 24
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Tiempo restante", Value: fmt.Sprintf("%d días y %d horas", days, hours), Inline: true,
		})
	}
	return embed
}
