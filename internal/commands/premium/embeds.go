package premium

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const (
	colorError   = 0xFF0000
	colorWarning = 0xFFA500
	colorSuccess = 0x2ECC71
	colorPremium = 0xFFD700
)

// commandTimeout bounds the database and Discord calls of one command
const commandTimeout = 15 * time.Second

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorError,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// editReply replaces the deferred response, logging delivery failures
func editReply(ctx *discord.CommandContext, embed *discordgo.MessageEmbed) {
	if err := ctx.EditReplyEmbed(embed); err != nil {
		logger.Error(fmt.Sprintf("Error enviando respuesta: %v", err), "Premium")
	}
}

func userID(ctx *discord.CommandContext) string {
	if u := ctx.User(); u != nil {
		return u.ID
	}
	return ""
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func timestamp(t *time.Time, style string) string {
	if t == nil {
		return "N/A"
	}
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
