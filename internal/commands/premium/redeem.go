package premium

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/database"
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
	cerrors "github.com/cockroachdb/errors"
)

// createRedeemCommand creates the /premium redeem command
func createRedeemCommand() *discord.Command {
	return discord.NewCommand(
		"redeem",
		"Canjea un código premium para este servidor",
		"premium",
		redeemHandler,
	).RequiresGuild().WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "codigo",
			Description: "El código premium a canjear",
			Required:    true,
		},
	)
}

func redeemHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		if err := ctx.Defer(); err != nil {
			logger.Error(fmt.Sprintf("Error difiriendo respuesta: %v", err), "Premium")
			return
		}

		c, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		code := subscription.NormalizeCode(ctx.GetStringOption("codigo"))
		res, err := subscription.Get().Redeem(c, code, ctx.Interaction.GuildID, userID(ctx))
		if err != nil {
			if !isExpectedRedeemError(err) {
				logger.Error(fmt.Sprintf("Error canjeando código %s en %s: %v", code, ctx.Interaction.GuildID, err), "Premium")
			}
			editReply(ctx, redeemErrorEmbed(err, code))
			return
		}

		editReply(ctx, redeemSuccessEmbed(res))
	}()
	return nil
}

func isExpectedRedeemError(err error) bool {
	return cerrors.Is(err, subscription.ErrCodeNotFound) || cerrors.Is(err, subscription.ErrActiveSubscription)
}

// redeemErrorEmbed explains why a redemption failed
func redeemErrorEmbed(err error, code string) *discordgo.MessageEmbed {
	switch {
	case cerrors.Is(err, subscription.ErrActiveSubscription):
		return errorEmbed("🚫 Canje fallido",
			"Este servidor ya tiene una suscripción premium activa. Solo se permite una suscripción activa por servidor.")
	case cerrors.Is(err, subscription.ErrCodeNotFound):
		return errorEmbed("❌ Código inválido",
			fmt.Sprintf("El código `%s` no es válido o ya fue canjeado.", code))
	case cerrors.Is(err, subscription.ErrGuildRequired):
		return errorEmbed("❌ Solo en servidores", "Este comando debe usarse dentro de un servidor.")
	case cerrors.Is(err, database.ErrNotConnected):
		embed := errorEmbed("⚠️ Base de datos no disponible",
			"El bot aún se está conectando a la base de datos. Inténtalo de nuevo en un momento.")
		embed.Color = colorWarning
		return embed
	default:
		return errorEmbed("❌ Error interno", "Ocurrió un error interno durante el canje. Inténtalo más tarde.")
	}
}

// redeemSuccessEmbed confirms the redemption and asks for the role setup
func redeemSuccessEmbed(res *subscription.Redemption) *discordgo.MessageEmbed {
	end := res.Subscription.SubscriptionEndDate
	return &discordgo.MessageEmbed{
		Title: "✅ ¡Código canjeado con éxito!",
		Description: "Has reclamado la suscripción premium de este servidor. " +
			"Un administrador debe ejecutar `/premium setrole` para elegir el rol VIP y finalizar la configuración. " +
			"Quedas registrado como el usuario que canjeó el código.",
		Color: colorPremium,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duración", Value: fmt.Sprintf("%d días", res.Code.DurationDays), Inline: true},
			{Name: "Expira", Value: fmt.Sprintf("**%s** (%s)", formatDate(end), timestamp(end, "R")), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "PancyPremium"},
	}
}
