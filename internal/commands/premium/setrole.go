package premium

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/database"
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
	cerrors "github.com/cockroachdb/errors"
)

// createSetRoleCommand creates the /premium setrole command
func createSetRoleCommand() *discord.Command {
	return discord.NewCommand(
		"setrole",
		"Configura el rol premium y lo asigna a quien canjeó el código",
		"premium",
		setroleHandler,
	).RequiresGuild().
		WithUserPermissions(discordgo.PermissionAdministrator).
		WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "rol",
				Description: "El rol VIP del servidor",
				Required:    true,
			},
		)
}

func setroleHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		if err := ctx.Defer(); err != nil {
			logger.Error(fmt.Sprintf("Error difiriendo respuesta: %v", err), "Premium")
			return
		}

		role := ctx.GetRoleOption("rol")
		if role == nil {
			editReply(ctx, errorEmbed("❌ Rol inválido", "Debes indicar un rol del servidor."))
			return
		}

		c, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		guildID := ctx.Interaction.GuildID
		res, err := subscription.Get().BindRole(c, guildID, role.ID, userID(ctx))
		if err != nil {
			logger.Error(fmt.Sprintf("Error configurando el rol premium en %s: %v", guildID, err), "Premium")
			if cerrors.Is(err, database.ErrNotConnected) {
				editReply(ctx, redeemErrorEmbed(err, ""))
				return
			}
			editReply(ctx, errorEmbed("❌ Error", "No se pudo guardar el rol premium."))
			return
		}

		editReply(ctx, setroleEmbed(ctx.GuildName(), role.ID, res))
	}()
	return nil
}

// setroleEmbed summarizes the stored binding and what happened to the grant
func setroleEmbed(guildName, roleID string, res *subscription.BindResult) *discordgo.MessageEmbed {
	sub := res.Subscription
	var b strings.Builder

	fmt.Fprintf(&b, "**Servidor:** `%s`\n", guildName)
	fmt.Fprintf(&b, "**Rol premium:** <@&%s> (`%s`)\n", roleID, roleID)
	fmt.Fprintf(&b, "**Fin de la suscripción:** %s\n", formatDate(sub.SubscriptionEndDate))

	color := colorSuccess
	switch {
	case res.MissingRedeemer:
		color = colorWarning
		b.WriteString("\n**Nota:** No se encontró al usuario que canjeó el código. " +
			"Asegúrate de que alguien haya ejecutado `/premium redeem` antes.")
	case res.Granted:
		fmt.Fprintf(&b, "**Usuario que canjeó:** <@%s>\n\n", sub.RedeemingAdminID)
		b.WriteString("**Acción:** Rol premium asignado al usuario que canjeó.")
	default:
		color = colorWarning
		fmt.Fprintf(&b, "**Usuario que canjeó:** <@%s>\n\n", sub.RedeemingAdminID)
		b.WriteString(grantFailureText(res.GrantErr))
	}

	if res.State == subscription.StateExpired || res.State == subscription.StateNoSubscription {
		b.WriteString("\n\n**Aviso:** El servidor no tiene una suscripción activa. El rol se guardó igualmente.")
	}

	return &discordgo.MessageEmbed{
		Title:       "✅ Configuración premium guardada",
		Description: b.String(),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func grantFailureText(err error) string {
	switch {
	case cerrors.Is(err, discord.ErrForbidden):
		return "**Advertencia:** No tengo permisos (`Gestionar roles`) para asignar el rol. " +
			"Revisa la jerarquía: mi rol debe estar por encima del rol asignado."
	case cerrors.Is(err, discord.ErrMemberNotFound):
		return "**Nota:** El usuario que canjeó ya no está en este servidor."
	default:
		return "**Error:** No se pudo asignar el rol. " + discord.DescribeRoleError(err)
	}
}
