package authz

import (
	"fmt"
	"strconv"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"marketplace-chat/internal/models"
)

// channelModel grants conversation.* channels to the conversation's buyer or
// seller, and notifications.* channels to the user they are named after.
const channelModel = `
[request_definition]
r = sub, obj, buyer, seller

[policy_definition]
p = obj, rule

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = keyMatch(r.obj, p.obj) && ((p.rule == "participant" && (r.sub == r.buyer || r.sub == r.seller)) || (p.rule == "owner" && r.obj == "notifications." + r.sub))
`

var channelPolicies = [][]string{
	{"conversation.*", "participant"},
	{"notifications.*", "owner"},
}

// Authorizer decides real-time channel subscriptions.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAuthorizer builds the enforcer from the embedded model and policies.
func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(channelModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(channelPolicies); err != nil {
		return nil, fmt.Errorf("failed to add channel policies: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// CanSubscribe reports whether userID may listen on channel. conv is required
// for conversation channels and ignored otherwise.
func (a *Authorizer) CanSubscribe(userID int64, channel string, conv *models.Conversation) (bool, error) {
	var buyer, seller string
	if conv != nil {
		if channel != models.ConversationChannel(conv.ID) {
			return false, nil
		}
		buyer = strconv.FormatInt(conv.BuyerID, 10)
		seller = strconv.FormatInt(conv.SellerID, 10)
	}

	allowed, err := a.enforcer.Enforce(strconv.FormatInt(userID, 10), channel, buyer, seller)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}
