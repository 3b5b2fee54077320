package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/models"
)

func TestConversationChannelRequiresParticipant(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)

	conv := &models.Conversation{ID: 5, BuyerID: 10, SellerID: 20}
	channel := models.ConversationChannel(5)

	for _, tc := range []struct {
		name   string
		userID int64
		want   bool
	}{
		{"buyer", 10, true},
		{"seller", 20, true},
		{"outsider", 30, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := a.CanSubscribe(tc.userID, channel, conv)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestConversationChannelMustMatchConversation(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)

	ok, err := a.CanSubscribe(10, models.ConversationChannel(6), &models.Conversation{ID: 5, BuyerID: 10, SellerID: 20})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConversationChannelWithoutConversation(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)

	ok, err := a.CanSubscribe(10, models.ConversationChannel(5), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotificationChannelOnlyForOwner(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)

	ok, err := a.CanSubscribe(42, models.NotificationChannel(42), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.CanSubscribe(42, models.NotificationChannel(43), nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.CanSubscribe(4, models.NotificationChannel(42), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownChannelDenied(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)

	ok, err := a.CanSubscribe(1, "admin.broadcast", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
