package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

func TestListNotificationsDefaults(t *testing.T) {
	f := newFixture(t, buyer())
	f.notifRepo.On("ListForUser", mock.Anything, buyerID, 20, 0).
		Return([]models.Notification{{ID: 2, UserID: buyerID}}, nil).Once()

	rec := f.do(http.MethodGet, "/notifications", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Notifications, 1)
	f.notifRepo.AssertExpectations(t)
}

func TestUnreadNotificationCount(t *testing.T) {
	f := newFixture(t, buyer())
	f.notifRepo.On("CountUnread", mock.Anything, buyerID).Return(3, nil).Once()

	rec := f.do(http.MethodGet, "/notifications/unread-count", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count":3}`, rec.Body.String())
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	f := newFixture(t, buyer())
	f.notifRepo.On("MarkRead", mock.Anything, int64(7), buyerID).Return(repositories.ErrNotificationNotFound).Once()

	rec := f.do(http.MethodPost, "/notifications/7/read", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkNotificationRead(t *testing.T) {
	f := newFixture(t, buyer())
	f.notifRepo.On("MarkRead", mock.Anything, int64(7), buyerID).Return(nil).Once()

	rec := f.do(http.MethodPost, "/notifications/7/read", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	f := newFixture(t, buyer())
	f.notifRepo.On("MarkAllRead", mock.Anything, buyerID).Return(int64(4), nil).Once()

	rec := f.do(http.MethodPost, "/notifications/read-all", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":4}`, rec.Body.String())
}

func TestSendNotificationRequiresAdmin(t *testing.T) {
	f := newFixture(t, buyer())

	rec := f.do(http.MethodPost, "/notifications", `{"user_id":2,"type":"system","data":{"message":"hi"}}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.notifRepo.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
}

func TestSendNotificationAsAdmin(t *testing.T) {
	f := newFixture(t, models.Admin{ID: 50, Name: "mod"})
	f.notifRepo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == sellerID && n.Type == models.NotificationSystem && n.Message == "Akun diverifikasi"
	})).Return(models.Notification{ID: 8, UserID: sellerID, Type: models.NotificationSystem}, nil).Once()

	rec := f.do(http.MethodPost, "/notifications", `{"user_id":2,"type":"system","data":{"message":"Akun diverifikasi"}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	f.notifRepo.AssertExpectations(t)
	f.bcast.AssertCalled(t, "Broadcast", mock.Anything, "notifications.2", mock.Anything)
}

func TestSendNotificationUnknownType(t *testing.T) {
	f := newFixture(t, models.Admin{ID: 50, Name: "mod"})

	rec := f.do(http.MethodPost, "/notifications", `{"user_id":2,"type":"promo"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
