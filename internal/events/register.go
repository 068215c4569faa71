// Package events provides a registry for organizing bot events.
package events

import (
	"context"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
)

// SweepStarter starts the expiration sweep. Start must be idempotent since
// every bot in the fleet reports Ready.
type SweepStarter interface {
	Start(ctx context.Context) bool
}

// Deps holds what the event handlers need beyond the client itself
type Deps struct {
	Ctx     context.Context
	Sweeper SweepStarter
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}

	// Ready event (bot startup)
	RegisterReadyEvent(client, deps)

	// Guild events (server join/leave)
	RegisterGuildEvents(client)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
