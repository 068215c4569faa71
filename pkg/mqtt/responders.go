package mqtt

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/cockroachdb/errors"
)

// TopicPremiumStatus is answered with the derived subscription of a guild
const TopicPremiumStatus = "premium.status"

const responderTimeout = 5 * time.Second

// StatusProvider is the read side of the subscription service
type StatusProvider interface {
	Status(ctx context.Context, guildID string) (*subscription.StatusReport, error)
}

// PremiumStatusHandler answers {"guildId": "..."} requests from other services
func PremiumStatusHandler(svc StatusProvider) RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		guildID, _ := payload["guildId"].(string)
		if guildID == "" {
			return nil, errors.New("falta guildId")
		}

		ctx, cancel := context.WithTimeout(context.Background(), responderTimeout)
		defer cancel()

		report, err := svc.Status(ctx, guildID)
		if err != nil {
			return nil, err
		}

		out := map[string]interface{}{
			"guildId": guildID,
			"state":   report.State.String(),
			"active":  report.State == subscription.StateActive || report.State == subscription.StateExpiringSoon,
		}
		if sub := report.Subscription; sub != nil {
			if sub.VIPRoleID != "" {
				out["vipRoleId"] = sub.VIPRoleID
			}
			if sub.SubscriptionEndDate != nil {
				out["subscriptionEndDate"] = sub.SubscriptionEndDate.UTC().Format(time.RFC3339)
			}
		}
		return out, nil
	}
}

// RegisterResponders subscribes the request topics this bot answers
func RegisterResponders(mc *MqttCommunicator, svc StatusProvider) {
	mc.On(TopicPremiumStatus, PremiumStatusHandler(svc))
}
