package services

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"marketplace-chat/internal/models"
)

var (
	// ErrNotParticipant is returned when the caller is neither buyer nor seller.
	ErrNotParticipant = models.ErrNotParticipant
	// ErrForbidden is returned when someone other than the sender edits or deletes a message.
	ErrForbidden = errors.New("only the sender may modify this message")
	// ErrInvalidMessage is returned for blank or oversized message bodies.
	ErrInvalidMessage = errors.New("invalid message body")
	// ErrInvalidParticipants is returned when a conversation would pair a user with themselves.
	ErrInvalidParticipants = errors.New("invalid conversation participants")
	// ErrConcurrentUpdateConflict is reserved for optimistic counter updates.
	// Counters are updated atomically in SQL, so nothing returns it today.
	ErrConcurrentUpdateConflict = errors.New("concurrent update conflict")
)

// MaxMessageLength is the longest accepted body, in characters.
const MaxMessageLength = 5000

var validate = validator.New()
