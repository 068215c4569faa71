package utils

import (
	"fmt"

	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
)

// invitePermissions covers reading and sending messages and managing roles
const invitePermissions = 268820352

// createInviteCommand creates the /utils invite subcommand
func createInviteCommand() *discord.Command {
	return discord.NewCommand(
		"invite",
		"Genera el enlace de invitación de este bot",
		"utils",
		inviteHandler,
	)
}

// InviteURL builds the OAuth2 link that adds the bot with its permissions
func InviteURL(clientID string) string {
	return fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&permissions=%d&scope=bot+applications.commands",
		clientID, invitePermissions)
}

func inviteHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		user := ctx.Session.State.User
		if user == nil {
			_ = ctx.ReplyEphemeral("❌ Error: la información del bot aún no está disponible.")
			return
		}

		msg := fmt.Sprintf("🔗 **Enlace de invitación de %s**\n\nEste enlace solicita los permisos necesarios. <%s>",
			user.Username, InviteURL(user.ID))
		if err := ctx.Reply(msg); err != nil {
			logger.Error(fmt.Sprintf("Error enviando invitación: %v", err), "Utils")
		}
	}()
	return nil
}
