package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/database"
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// pingTimeout keeps the reply inside the 3s interaction window
const pingTimeout = 2 * time.Second

// createPingCommand creates the /utils ping subcommand
func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Comprueba la latencia del bot y de la base de datos",
		"utils",
		pingHandler,
	)
}

// pingHandler reports gateway and database latency plus fleet readiness
func pingHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		c, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()

		dbLatency := time.Duration(-1)
		if db := database.Get(); db != nil {
			if d, err := db.Ping(c); err == nil {
				dbLatency = d
			}
		}

		ready, total := 0, 0
		if f := discord.Get(); f != nil {
			ready, total = f.ReadyCount(), f.Total()
		}

		embed := pingEmbed(ctx.Session.HeartbeatLatency(), dbLatency, ready, total)
		if err := ctx.ReplyEmbed(embed); err != nil {
			logger.Error(fmt.Sprintf("Error respondiendo ping: %v", err), "Utils")
		}
	}()
	return nil
}

// pingEmbed builds the reply; a negative dbLatency means the database is down
func pingEmbed(gateway, dbLatency time.Duration, ready, total int) *discordgo.MessageEmbed {
	db := "🔴 Desconectada"
	color := 0xFFA500
	if dbLatency >= 0 {
		db = fmt.Sprintf("%dms", dbLatency.Milliseconds())
		color = 0x2ECC71
	}

	return &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Gateway", Value: fmt.Sprintf("%dms", gateway.Milliseconds()), Inline: true},
			{Name: "Base de datos", Value: db, Inline: true},
			{Name: "Bots listos", Value: fmt.Sprintf("%d/%d", ready, total), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
