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
	cerrors "github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const maxPrefixLength = 32

// CreateCodeGenCommand creates the /dev codegen command
func CreateCodeGenCommand() *discord.Command {
	return discord.NewCommand(
		"codegen",
		"Genera códigos premium (Solo propietario)",
		"dev",
		codegenHandler,
	).AsDev().WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "prefijo",
			Description: "Etiqueta del código (cliente, campaña...)",
			Required:    true,
			MinLength:   lo.ToPtr(1),
			MaxLength:   maxPrefixLength,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duracion",
			Description: "Duración en días, por ejemplo 30d o 90d (por defecto 30d)",
			Required:    false,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "cantidad",
			Description: fmt.Sprintf("Número de códigos a generar (1-%d, por defecto 1)", subscription.MaxBatchSize),
			Required:    false,
			MinValue:    lo.ToPtr(1.0),
			MaxValue:    float64(subscription.MaxBatchSize),
		},
	)
}

func codegenHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		if err := ctx.DeferEphemeral(); err != nil {
			logger.Error(fmt.Sprintf("Error difiriendo respuesta: %v", err), "DevCodeGen")
			return
		}

		prefix := strings.TrimSpace(ctx.GetStringOption("prefijo"))
		rawDuration := subscription.DefaultDuration
		if ctx.HasOption("duracion") {
			rawDuration = ctx.GetStringOption("duracion")
		}

		count := int64(1)
		if ctx.HasOption("cantidad") {
			count = ctx.GetIntOption("cantidad")
		}

		days, err := validateCodegenInput(prefix, rawDuration)
		if err == nil {
			err = validateBatchSize(count)
		}
		if err != nil {
			editReply(ctx, errorEmbed("Datos inválidos", err.Error()), "DevCodeGen")
			return
		}

		c, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		ownerID := callerID(ctx)
		codes, err := subscription.Get().GenerateBatch(c, prefix, days, int(count), ownerID)
		if err != nil {
			logger.Error(fmt.Sprintf("Error generando códigos: %v", err), "DevCodeGen")
			editReply(ctx, errorEmbed("Error", fmt.Sprintf("No se pudieron generar los códigos: %v", err)), "DevCodeGen")
			// codes created before the failure are still valid
			if len(codes) == 0 {
				return
			}
			followUp(ctx, codegenEmbed(codes, callerName(ctx)), "DevCodeGen")
		} else {
			editReply(ctx, codegenEmbed(codes, callerName(ctx)), "DevCodeGen")
		}

		if err := ctx.SendDM(ownerID, codeDMEmbed(codes)); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo enviar el código por DM: %v", err), "DevCodeGen")
			followUp(ctx, dmFailedEmbed(), "DevCodeGen")
		}

		logger.Info(fmt.Sprintf("Usuario %s generó %d código(s) (%d días, prefijo %s)",
			callerName(ctx), len(codes), days, prefix), "DevCodeGen")
	}()

	return nil
}

// validateCodegenInput checks the prefix and parses the duration
func validateCodegenInput(prefix, rawDuration string) (int, error) {
	if prefix == "" {
		return 0, cerrors.New("El prefijo no puede estar vacío.")
	}
	if len(prefix) > maxPrefixLength {
		return 0, cerrors.Newf("El prefijo no puede superar %d caracteres.", maxPrefixLength)
	}

	days, err := subscription.ParseDuration(rawDuration)
	if err != nil {
		return 0, cerrors.Newf("La duración `%s` no es válida. Usa un número positivo de días seguido de 'd' (ej. `30d`, `90d`, máximo %d).",
			rawDuration, subscription.MaxDurationDays)
	}
	return days, nil
}

// validateBatchSize mirrors the option bounds registered with Discord
func validateBatchSize(count int64) error {
	if count < 1 || count > subscription.MaxBatchSize {
		return cerrors.Newf("La cantidad debe estar entre 1 y %d.", subscription.MaxBatchSize)
	}
	return nil
}

// codeLines renders one backticked code per line
func codeLines(codes []*models.RedemptionCode) string {
	return strings.Join(lo.Map(codes, func(c *models.RedemptionCode, _ int) string {
		return fmt.Sprintf("`%s`", c.Code)
	}), "\n")
}

// codegenEmbed lists a batch that shares prefix and duration
func codegenEmbed(codes []*models.RedemptionCode, generatedBy string) *discordgo.MessageEmbed {
	title, field := "🎫 Código Premium Generado", "Código"
	if len(codes) > 1 {
		title, field = fmt.Sprintf("🎫 %d Códigos Premium Generados", len(codes)), "Códigos"
	}
	first := codes[0]
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: "Se intentará enviarte los códigos por mensaje directo.",
		Color:       0x00FF00, // Verde
		Fields: []*discordgo.MessageEmbedField{
			{Name: field, Value: codeLines(codes), Inline: false},
			{Name: "Prefijo", Value: fmt.Sprintf("`%s`", first.Prefix), Inline: true},
			{Name: "Duración", Value: fmt.Sprintf("%d días", first.DurationDays), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Generado por %s", generatedBy),
		},
	}
}

func codeDMEmbed(codes []*models.RedemptionCode) *discordgo.MessageEmbed {
	first := codes[0]
	return &discordgo.MessageEmbed{
		Title:       "🎫 Nuevos códigos premium",
		Description: fmt.Sprintf("Códigos para el prefijo `%s` (%d días):\n%s", first.Prefix, first.DurationDays, codeLines(codes)),
		Color:       0x00FF00,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func dmFailedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚠️ Advertencia",
		Description: "No se pudo enviar el código por DM. Cópialo de la respuesta anterior ahora mismo.",
		Color:       0xFFA500, // Naranja
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}
