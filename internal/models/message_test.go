package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCanEdit(t *testing.T) {
	msg := Message{SenderID: 5, State: MessageActive}
	assert.True(t, msg.CanEdit(5))
	assert.False(t, msg.CanEdit(6))
	assert.False(t, msg.IsDeleted())

	msg.State = MessageDeleted
	assert.True(t, msg.IsDeleted())
}

func TestMessageStateScan(t *testing.T) {
	var s MessageState
	require.NoError(t, s.Scan("deleted"))
	assert.Equal(t, MessageDeleted, s)
	require.NoError(t, s.Scan([]byte("active")))
	assert.Equal(t, MessageActive, s)
	assert.Error(t, s.Scan(42))
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: MaxPageLimit, BeforeID: 3}, Page{Limit: 1000, BeforeID: 3}.Normalize())
	assert.Equal(t, Page{Limit: 10}, Page{Limit: 10, BeforeID: -1}.Normalize())
}

func TestNotificationDataRoundTrip(t *testing.T) {
	v, err := NotificationData{"sender_name": "Alice"}.Value()
	require.NoError(t, err)

	var d NotificationData
	require.NoError(t, d.Scan(v))
	assert.Equal(t, "Alice", d["sender_name"])

	require.NoError(t, d.Scan(nil))
	assert.Empty(t, d)
}
