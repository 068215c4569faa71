package premium

import (
	"testing"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/database"
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestCommandDefinitions(t *testing.T) {
	redeem := createRedeemCommand()
	assert.True(t, redeem.GuildOnly)
	assert.Zero(t, redeem.UserPermissions)
	assert.Equal(t, "codigo", redeem.Options[0].Name)

	setrole := createSetRoleCommand()
	assert.True(t, setrole.GuildOnly)
	assert.EqualValues(t, discordgo.PermissionAdministrator, setrole.UserPermissions)
	assert.Equal(t, discordgo.ApplicationCommandOptionRole, setrole.Options[0].Type)

	assert.True(t, createStatusCommand().GuildOnly)
}

func TestSetroleAccess(t *testing.T) {
	setrole := createSetRoleCommand()

	admin := discord.Caller{UserID: "u1", GuildID: "g1", Permissions: discordgo.PermissionAdministrator}
	assert.NoError(t, discord.CheckAccess(setrole, admin, "owner"))

	member := discord.Caller{UserID: "u2", GuildID: "g1", Permissions: discordgo.PermissionManageRoles}
	assert.ErrorIs(t, discord.CheckAccess(setrole, member, "owner"), discord.ErrMissingPermissions)
}

func TestRedeemErrorEmbed(t *testing.T) {
	tests := []struct {
		err   error
		title string
	}{
		{subscription.ErrActiveSubscription, "🚫 Canje fallido"},
		{errors.Wrap(subscription.ErrCodeNotFound, "canjeando"), "❌ Código inválido"},
		{subscription.ErrGuildRequired, "❌ Solo en servidores"},
		{errors.Wrap(database.ErrNotConnected, "leyendo suscripción"), "⚠️ Base de datos no disponible"},
		{errors.New("boom"), "❌ Error interno"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.title, redeemErrorEmbed(tt.err, "ABC").Title)
		})
	}

	assert.Contains(t, redeemErrorEmbed(subscription.ErrCodeNotFound, "ABC123").Description, "`ABC123`")
}

func TestRedeemSuccessEmbed(t *testing.T) {
	end := time.Date(2026, 11, 17, 12, 0, 0, 0, time.UTC)
	embed := redeemSuccessEmbed(&subscription.Redemption{
		Code:         &models.RedemptionCode{Code: "ABC", DurationDays: 30},
		Subscription: &models.GuildSubscription{GuildID: "g", SubscriptionEndDate: &end},
	})

	assert.Contains(t, embed.Description, "/premium setrole")
	assert.Equal(t, "30 días", embed.Fields[0].Value)
	assert.Contains(t, embed.Fields[1].Value, "2026-11-17 12:00 UTC")
}

func TestSetroleEmbed(t *testing.T) {
	end := time.Now().Add(72 * time.Hour)
	sub := &models.GuildSubscription{GuildID: "g", RedeemingAdminID: "u1", VIPRoleID: "r1", SubscriptionEndDate: &end}

	granted := setroleEmbed("Mi Server", "r1", &subscription.BindResult{Subscription: sub, State: subscription.StateActive, Granted: true})
	assert.Contains(t, granted.Description, "Rol premium asignado")
	assert.Contains(t, granted.Description, "<@u1>")
	assert.Equal(t, colorSuccess, granted.Color)

	forbidden := setroleEmbed("Mi Server", "r1", &subscription.BindResult{
		Subscription: sub,
		State:        subscription.StateActive,
		GrantErr:     errors.Mark(errors.New("403"), discord.ErrForbidden),
	})
	assert.Contains(t, forbidden.Description, "Gestionar roles")
	assert.Equal(t, colorWarning, forbidden.Color)

	missing := setroleEmbed("Mi Server", "r1", &subscription.BindResult{
		Subscription:    &models.GuildSubscription{GuildID: "g", VIPRoleID: "r1"},
		State:           subscription.StateNoSubscription,
		MissingRedeemer: true,
	})
	assert.Contains(t, missing.Description, "No se encontró al usuario")
	assert.Contains(t, missing.Description, "no tiene una suscripción activa")
	assert.Contains(t, missing.Description, "N/A")
}

func TestGrantFailureText(t *testing.T) {
	assert.Contains(t, grantFailureText(discord.ErrMemberNotFound), "ya no está")
	assert.Contains(t, grantFailureText(errors.New("timeout")), "timeout")
}

func TestStatusEmbed(t *testing.T) {
	none := statusEmbed("Mi Server", &subscription.StatusReport{
		Subscription: models.NewGuildSubscription("g"),
		State:        subscription.StateNoSubscription,
	})
	assert.Contains(t, none.Description, "/premium redeem")
	assert.Len(t, none.Fields, 1)

	end := time.Now().Add(50 * time.Hour)
	active := statusEmbed("Mi Server", &subscription.StatusReport{
		Subscription: &models.GuildSubscription{GuildID: "g", SubscriptionEndDate: &end, RedeemingAdminID: "u1"},
		State:        subscription.StatePendingRoleBinding,
		Remaining:    50 * time.Hour,
	})
	assert.Equal(t, "⭐ Premium de Mi Server", active.Title)
	assert.Equal(t, subscription.StatePendingRoleBinding.Label(), active.Fields[0].Value)

	values := make(map[string]string)
	for _, f := range active.Fields {
		values[f.Name] = f.Value
	}
	assert.Contains(t, values["Rol premium"], "Sin configurar")
	assert.Equal(t, "<@u1>", values["Canjeado por"])
	assert.Equal(t, "2 días y 2 horas", values["Tiempo restante"])
}
