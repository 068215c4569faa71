package discord

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// Role operation failures
var (
	// ErrForbidden means the bot lacks Manage Roles or the role sits above its own
	ErrForbidden = errors.New("sin permisos para gestionar el rol")
	// ErrMemberNotFound means the member or the role no longer exists in the guild
	ErrMemberNotFound = errors.New("miembro o rol no encontrado")
)

// RoleManager grants and removes guild roles through the fleet
type RoleManager struct {
	fleet *Fleet
}

var _ subscription.RoleManager = (*RoleManager)(nil)

// NewRoleManager creates a RoleManager using f's connections
func NewRoleManager(f *Fleet) *RoleManager {
	return &RoleManager{fleet: f}
}

// Grant adds roleID to userID in guildID
func (r *RoleManager) Grant(ctx context.Context, guildID, userID, roleID, reason string) error {
	c, err := r.fleet.clientFor(guildID)
	if err != nil {
		return err
	}

	err = c.Session.GuildMemberRoleAdd(guildID, userID, roleID,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		err = classifyRoleError(err)
		logger.Warn(fmt.Sprintf("No se pudo asignar el rol %s a %s en %s: %v", roleID, userID, guildID, err), "Roles")
		return err
	}

	logger.Info(fmt.Sprintf("Rol %s asignado a %s en %s", roleID, userID, guildID), "Roles")
	return nil
}

// Revoke removes roleID from userID in guildID
func (r *RoleManager) Revoke(ctx context.Context, guildID, userID, roleID, reason string) error {
	c, err := r.fleet.clientFor(guildID)
	if err != nil {
		return err
	}

	err = c.Session.GuildMemberRoleRemove(guildID, userID, roleID,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		return classifyRoleError(err)
	}

	logger.Info(fmt.Sprintf("Rol %s retirado a %s en %s", roleID, userID, guildID), "Roles")
	return nil
}

// classifyRoleError marks REST failures with ErrForbidden or
// ErrMemberNotFound so callers can match them with errors.Is
func classifyRoleError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownUser:
			return errors.Mark(err, ErrMemberNotFound)
		case discordgo.ErrCodeMissingPermissions:
			return errors.Mark(err, ErrForbidden)
		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return errors.Mark(err, ErrForbidden)
		case http.StatusNotFound:
			return errors.Mark(err, ErrMemberNotFound)
		}
	}
	return err
}

// DescribeRoleError returns a short user-facing reason for a role failure
func DescribeRoleError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrForbidden):
		return "Sin permisos (Gestionar Roles o jerarquía de roles)"
	case errors.Is(err, ErrMemberNotFound):
		return "El usuario o el rol ya no están en el servidor"
	case errors.Is(err, ErrNoReadyClient):
		return "Ningún bot conectado"
	default:
		return "Error: " + err.Error()
	}
}
