package dev

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

const (
	// codesPerEmbed keeps each embed under Discord's field limit
	codesPerEmbed = 10
	maxPages      = 5
)

// CreateCodeListCommand creates the /dev codelist command
func CreateCodeListCommand() *discord.Command {
	return discord.NewCommand(
		"codelist",
		"Lista los códigos premium generados (Solo propietario)",
		"dev",
		codelistHandler,
	).AsDev().WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "filtro",
			Description: "Filtrar códigos por estado",
			Required:    false,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Todos", Value: string(subscription.CodeFilterAll)},
				{Name: "Disponibles", Value: string(subscription.CodeFilterAvailable)},
				{Name: "Canjeados", Value: string(subscription.CodeFilterRedeemed)},
			},
		},
	)
}

func codelistHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		if err := ctx.DeferEphemeral(); err != nil {
			logger.Error(fmt.Sprintf("Error difiriendo respuesta: %v", err), "DevCodeList")
			return
		}

		filter := subscription.ParseCodeFilter(ctx.GetStringOption("filtro"))

		c, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		codes, err := subscription.Get().ListCodes(c, filter)
		if err != nil {
			logger.Error(fmt.Sprintf("Error obteniendo códigos: %v", err), "DevCodeList")
			editReply(ctx, errorEmbed("Error", "Error al obtener los códigos premium."), "DevCodeList")
			return
		}

		embeds := codeListEmbeds(codes, filter)
		editReply(ctx, embeds[0], "DevCodeList")
		for _, embed := range embeds[1:] {
			followUp(ctx, embed, "DevCodeList")
		}

		logger.Info(fmt.Sprintf("Usuario %s listó %d códigos premium", callerName(ctx), len(codes)), "DevCodeList")
	}()

	return nil
}

// codeListEmbeds paginates codes. It always returns at least one embed.
func codeListEmbeds(codes []*models.RedemptionCode, filter subscription.CodeFilter) []*discordgo.MessageEmbed {
	if len(codes) == 0 {
		return []*discordgo.MessageEmbed{{
			Title:       "📋 Lista de Códigos Premium",
			Description: "No se encontraron códigos con los filtros especificados.",
			Color:       0xFFFF00, // Amarillo
			Timestamp:   time.Now().Format(time.RFC3339),
		}}
	}

	available := lo.CountBy(codes, func(c *models.RedemptionCode) bool { return !c.Redeemed })
	summary := fmt.Sprintf("%s | 🎫 %d disponibles | ✅ %d canjeados",
		filterDescription(filter), available, len(codes)-available)

	pages := lo.Chunk(codes, codesPerEmbed)
	shown := pages
	if len(pages) > maxPages {
		shown = pages[:maxPages]
	}

	embeds := make([]*discordgo.MessageEmbed, 0, len(shown))
	for i, page := range shown {
		from := i*codesPerEmbed + 1
		to := from + len(page) - 1

		embed := &discordgo.MessageEmbed{
			Title: fmt.Sprintf("📋 Lista de Códigos Premium (%d-%d de %d)", from, to, len(codes)),
			Color: 0x00BFFF, // Azul claro
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Filtros Aplicados", Value: summary, Inline: false},
			},
			Timestamp: time.Now().Format(time.RFC3339),
		}
		embed.Fields = append(embed.Fields, lo.Map(page, func(code *models.RedemptionCode, _ int) *discordgo.MessageEmbedField {
			return &discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("`%s`", code.Code),
				Value: formatCodeInfo(code),
			}
		})...)
		embeds = append(embeds, embed)
	}

	if hidden := len(codes) - maxPages*codesPerEmbed; hidden > 0 {
		embeds[len(embeds)-1].Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("… y %d códigos más. Usa un filtro para acotar la lista.", hidden),
		}
	}
	return embeds
}

// formatCodeInfo formatea la información de un código
func formatCodeInfo(code *models.RedemptionCode) string {
	parts := []string{fmt.Sprintf("**Prefijo:** `%s`", code.Prefix)}

	if code.Redeemed {
		parts = append(parts, "**Estado:** ✅ Canjeado")
		if code.RedeemedByUserID != "" {
			parts = append(parts, fmt.Sprintf("**Canjeado por:** <@%s>", code.RedeemedByUserID))
		}
		if code.RedeemedAtGuildID != "" {
			parts = append(parts, fmt.Sprintf("**Servidor:** `%s`", code.RedeemedAtGuildID))
		}
		if code.RedeemedTimestamp != nil {
			parts = append(parts, fmt.Sprintf("**Canjeado el:** <t:%d:R>", code.RedeemedTimestamp.Unix()))
		}
	} else {
		parts = append(parts, "**Estado:** 🎫 Disponible")
	}

	parts = append(parts, fmt.Sprintf("**Duración:** %d días", code.DurationDays))

	if !code.CreatedAt.IsZero() {
		parts = append(parts, fmt.Sprintf("**Creado:** <t:%d:R>", code.CreatedAt.Unix()))
	}

	return strings.Join(parts, "\n")
}

// filterDescription devuelve una descripción del filtro aplicado
func filterDescription(filter subscription.CodeFilter) string {
	switch filter {
	case subscription.CodeFilterAvailable:
		return "🎫 Solo disponibles"
	case subscription.CodeFilterRedeemed:
		return "✅ Solo canjeados"
	default:
		return "📋 Todos los códigos"
	}
}
