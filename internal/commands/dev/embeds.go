package dev

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const commandTimeout = 15 * time.Second

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ " + title,
		Description: description,
		Color:       0xFF0000, // Rojo
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// editReply replaces the deferred response, logging delivery failures
func editReply(ctx *discord.CommandContext, embed *discordgo.MessageEmbed, prefix string) {
	if err := ctx.EditReplyEmbed(embed); err != nil {
		logger.Error(fmt.Sprintf("Error enviando respuesta: %v", err), prefix)
	}
}

// followUp sends an extra ephemeral message after the deferred response
func followUp(ctx *discord.CommandContext, embed *discordgo.MessageEmbed, prefix string) {
	_, err := ctx.Session.FollowupMessageCreate(ctx.Interaction.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Error enviando follow-up: %v", err), prefix)
	}
}

func callerID(ctx *discord.CommandContext) string {
	if u := ctx.User(); u != nil {
		return u.ID
	}
	return ""
}

func callerName(ctx *discord.CommandContext) string {
	if u := ctx.User(); u != nil {
		return u.Username
	}
	return "Unknown"
}
