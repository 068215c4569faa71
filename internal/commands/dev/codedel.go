package dev

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
	cerrors "github.com/cockroachdb/errors"
)

// CreateCodeDelCommand creates the /dev codedel command
func CreateCodeDelCommand() *discord.Command {
	return discord.NewCommand(
		"codedel",
		"Elimina un código premium sin canjear (Solo propietario)",
		"dev",
		codedelHandler,
	).AsDev().WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "codigo",
			Description: "Código premium a eliminar",
			Required:    true,
		},
	)
}

func codedelHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		if err := ctx.DeferEphemeral(); err != nil {
			logger.Error(fmt.Sprintf("Error difiriendo respuesta: %v", err), "DevCodeDel")
			return
		}

		code := subscription.NormalizeCode(ctx.GetStringOption("codigo"))
		if code == "" {
			editReply(ctx, errorEmbed("Error", "Debes especificar un código válido."), "DevCodeDel")
			return
		}

		c, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		rec, err := subscription.Get().RevokeCode(c, code, callerID(ctx))
		if err != nil {
			if !cerrors.Is(err, subscription.ErrCodeNotFound) && !cerrors.Is(err, subscription.ErrCodeRedeemed) {
				logger.Error(fmt.Sprintf("Error eliminando código %s: %v", code, err), "DevCodeDel")
			}
			editReply(ctx, codedelErrorEmbed(err, code, rec), "DevCodeDel")
			return
		}

		editReply(ctx, codedelEmbed(rec), "DevCodeDel")
		logger.Info(fmt.Sprintf("Usuario %s eliminó el código %s", callerName(ctx), code), "DevCodeDel")
	}()

	return nil
}

func codedelErrorEmbed(err error, code string, rec *models.RedemptionCode) *discordgo.MessageEmbed {
	switch {
	case cerrors.Is(err, subscription.ErrCodeNotFound):
		return errorEmbed("Código no encontrado", fmt.Sprintf("El código `%s` no existe.", code))
	case cerrors.Is(err, subscription.ErrCodeRedeemed):
		desc := fmt.Sprintf("El código `%s` ya fue canjeado y no puede eliminarse.", code)
		if rec != nil && rec.RedeemedAtGuildID != "" {
			desc += fmt.Sprintf("\nServidor: `%s`", rec.RedeemedAtGuildID)
		}
		return errorEmbed("Código canjeado", desc)
	default:
		return errorEmbed("Error", "Error al eliminar el código premium.")
	}
}

func codedelEmbed(rec *models.RedemptionCode) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🗑️ Código Eliminado",
		Description: fmt.Sprintf("El código `%s` fue eliminado.", rec.Code),
		Color:       0x00FF00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Prefijo", Value: fmt.Sprintf("`%s`", rec.Prefix), Inline: true},
			{Name: "Duración", Value: fmt.Sprintf("%d días", rec.DurationDays), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
