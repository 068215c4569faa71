package discord

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/config"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// Authorization failures raised before a command runs
var (
	ErrOwnerOnly          = errors.New("comando solo para el propietario")
	ErrGuildOnly          = errors.New("comando solo disponible en servidores")
	ErrMissingPermissions = errors.New("permisos insuficientes")
)

// Caller is the identity checked against a command's requirements
type Caller struct {
	UserID      string
	GuildID     string
	Permissions int64
}

// CheckAccess returns nil when caller may run cmd. Administrators satisfy
// every permission requirement.
func CheckAccess(cmd *Command, caller Caller, ownerID string) error {
	if cmd.IsDev && (ownerID == "" || caller.UserID != ownerID) {
		return ErrOwnerOnly
	}
	if (cmd.GuildOnly || cmd.UserPermissions != 0) && caller.GuildID == "" {
		return ErrGuildOnly
	}
	if cmd.UserPermissions != 0 {
		if caller.Permissions&discordgo.PermissionAdministrator == 0 &&
			caller.Permissions&cmd.UserPermissions != cmd.UserPermissions {
			return ErrMissingPermissions
		}
	}
	return nil
}

// callerFrom extracts the caller identity from an interaction
func callerFrom(ctx *CommandContext) Caller {
	caller := Caller{GuildID: ctx.Interaction.GuildID}
	if u := ctx.User(); u != nil {
		caller.UserID = u.ID
	}
	if m := ctx.Member(); m != nil {
		caller.Permissions = m.Permissions
	}
	return caller
}

// accessDeniedMessage maps an authorization error to a user-facing text
func accessDeniedMessage(err error) string {
	switch {
	case errors.Is(err, ErrOwnerOnly):
		return "❌ Este comando solo está disponible para el propietario del bot."
	case errors.Is(err, ErrGuildOnly):
		return "❌ Este comando solo puede usarse dentro de un servidor."
	case errors.Is(err, ErrMissingPermissions):
		return "❌ Necesitas permisos de administrador para usar este comando."
	default:
		return "❌ No tienes acceso a este comando."
	}
}

// GuardMiddleware rejects the interaction with an ephemeral embed when the
// caller may not run cmd
func (c *ExtendedClient) GuardMiddleware(ctx *CommandContext, cmd *Command) error {
	ownerID := ""
	if cfg := config.Get(); cfg != nil {
		ownerID = cfg.OwnerID
	}

	caller := callerFrom(ctx)
	err := CheckAccess(cmd, caller, ownerID)
	if err == nil {
		return nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🚫 Acceso Denegado",
		Description: accessDeniedMessage(err),
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	_ = ctx.ReplyEphemeralEmbed(embed)

	logger.Warn(fmt.Sprintf("Acceso denegado a %s para %s: %v", cmd.Name, caller.UserID, err), "Guard")
	return err
}
