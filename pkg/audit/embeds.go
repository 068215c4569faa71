package audit

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
)

// Embed colours
const (
	colorBlue   = 0x3498DB
	colorGreen  = 0x2ECC71
	colorGrey   = 0x95A5A6
	colorGold   = 0xF1C40F
	colorOrange = 0xE67E22
	colorRed    = 0xE74C3C
)

const dateLayout = "2006-01-02 15:04 UTC"

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format(dateLayout)
}

func mention(id string) string {
	if id == "" {
		return "N/A"
	}
	return fmt.Sprintf("<@%s> (`%s`)", id, id)
}

func roleMention(id string) string {
	if id == "" {
		return "N/A"
	}
	return fmt.Sprintf("<@&%s> (`%s`)", id, id)
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

// outcomeText describes a role side effect for the audit channel
func outcomeText(ev subscription.Event) string {
	switch ev.Outcome {
	case subscription.OutcomeGranted:
		return "✅ Sí"
	case subscription.OutcomeGrantFailed:
		return "❌ No: " + ev.Error
	case subscription.OutcomeMissingRedeemer:
		return "⚠️ No hay usuario que haya canjeado"
	case subscription.OutcomeRemoved:
		return "✅ Rol retirado"
	case subscription.OutcomeRemoveFailed:
		return "❌ " + ev.Error
	case subscription.OutcomeNothingToRemove:
		return "N/A (rol o usuario sin configurar)"
	default:
		return "N/A"
	}
}

// BuildEmbed renders ev as an audit channel embed. guildName may be empty.
func BuildEmbed(ev subscription.Event, guildName, footer string) *discordgo.MessageEmbed {
	server := fmt.Sprintf("`%s`", ev.GuildID)
	if guildName != "" {
		server = fmt.Sprintf("%s (`%s`)", guildName, ev.GuildID)
	}

	embed := &discordgo.MessageEmbed{
		Timestamp: ev.At.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: footer},
	}

	switch ev.Type {
	case subscription.EventCodeGenerated:
		embed.Title = "🎟️ CÓDIGO PREMIUM GENERADO"
		embed.Description = "Se generó un nuevo código de canje."
		embed.Color = colorBlue
		embed.Fields = []*discordgo.MessageEmbedField{
			field("Código", fmt.Sprintf("`%s`", ev.Code), true),
			field("Prefijo", fmt.Sprintf("`%s`", ev.Prefix), true),
			field("Duración", fmt.Sprintf("%d días", ev.DurationDays), true),
			field("Generado por", mention(ev.ActorID), false),
		}

	case subscription.EventCodeRedeemed:
		embed.Title = "✅ CÓDIGO PREMIUM CANJEADO"
		embed.Description = "Se canjeó un código y comenzó la configuración del servidor."
		embed.Color = colorGreen
		embed.Fields = []*discordgo.MessageEmbedField{
			field("Código", fmt.Sprintf("`%s`", ev.Code), true),
			field("Duración", fmt.Sprintf("%d días", ev.DurationDays), true),
			field("Expira (UTC)", formatDate(ev.EndDate), true),
			field("Servidor", server, false),
			field("Usuario", mention(ev.UserID), false),
		}

	case subscription.EventCodeRevoked:
		embed.Title = "🗑️ CÓDIGO REVOCADO"
		embed.Description = "Se eliminó un código sin canjear."
		embed.Color = colorGrey
		embed.Fields = []*discordgo.MessageEmbedField{
			field("Código", fmt.Sprintf("`%s`", ev.Code), true),
			field("Duración", fmt.Sprintf("%d días", ev.DurationDays), true),
			field("Revocado por", mention(ev.ActorID), false),
		}

	case subscription.EventRoleBound:
		embed.Title = "⭐ CONFIGURACIÓN PREMIUM COMPLETADA"
		embed.Description = "Se configuró el rol premium del servidor."
		embed.Color = colorGold
		embed.Fields = []*discordgo.MessageEmbedField{
			field("Servidor", server, false),
			field("Rol premium", roleMention(ev.RoleID), true),
			field("Expira (UTC)", formatDate(ev.EndDate), true),
			field("Usuario que canjeó", mention(ev.UserID), true),
			field("¿Rol asignado?", outcomeText(ev), true),
			field("Configurado por", mention(ev.ActorID), false),
		}

	case subscription.EventExpiryWarning:
		embed.Title = "🟠 SUSCRIPCIÓN POR EXPIRAR (24H)"
		embed.Description = fmt.Sprintf("La suscripción del servidor %s expira en menos de 24 horas.", server)
		embed.Color = colorOrange
		embed.Fields = []*discordgo.MessageEmbedField{
			field("Servidor", server, false),
			field("Usuario que canjeó", mention(ev.UserID), true),
			field("Expira (UTC)", formatDate(ev.EndDate), true),
		}

	case subscription.EventSubscriptionExpired:
		embed.Title = "🔴 SUSCRIPCIÓN EXPIRADA"
		embed.Description = fmt.Sprintf("La suscripción del servidor %s expiró y se intentó retirar el rol.", server)
		embed.Color = colorRed
		embed.Fields = []*discordgo.MessageEmbedField{
			field("Servidor", server, false),
			field("Usuario que canjeó", mention(ev.UserID), true),
			field("Expiró (UTC)", formatDate(ev.EndDate), true),
			field("Rol", roleMention(ev.RoleID), true),
			field("Acción sobre el rol", outcomeText(ev), true),
		}

	default:
		embed.Title = string(ev.Type)
		embed.Color = colorGrey
	}

	return embed
}

// Summary is the one-line log form of ev
func Summary(ev subscription.Event) string {
	switch ev.Type {
	case subscription.EventCodeGenerated:
		return fmt.Sprintf("Código %s generado (%d días) por %s", ev.Code, ev.DurationDays, ev.ActorID)
	case subscription.EventCodeRedeemed:
		return fmt.Sprintf("Código %s canjeado en %s por %s, expira %s", ev.Code, ev.GuildID, ev.UserID, formatDate(ev.EndDate))
	case subscription.EventCodeRevoked:
		return fmt.Sprintf("Código %s revocado por %s", ev.Code, ev.ActorID)
	case subscription.EventRoleBound:
		return fmt.Sprintf("Rol %s configurado en %s (%s)", ev.RoleID, ev.GuildID, ev.Outcome)
	case subscription.EventExpiryWarning:
		return fmt.Sprintf("La suscripción de %s expira %s", ev.GuildID, formatDate(ev.EndDate))
	case subscription.EventSubscriptionExpired:
		return fmt.Sprintf("Suscripción de %s expirada (%s)", ev.GuildID, ev.Outcome)
	default:
		return string(ev.Type)
	}
}
