package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoLikes           = errors.New("no likes left")
	ErrLikesFull         = errors.New("likes are already full")
	ErrNoSlots           = errors.New("no chat slots available")
	ErrUnknownPack       = errors.New("unknown coin pack")
	ErrDependenciesNil   = errors.New("ledger dependencies are not configured")
)

type Party string

const (
	PartyReceiver Party = "receiver"
	PartySender   Party = "sender"
)

// NoSlotsError names which side of a two-party reservation had no free slot.
type NoSlotsError struct {
	Party  Party
	UserID int64
}

func (e NoSlotsError) Error() string {
	return fmt.Sprintf("no chat slots available for %s %d", e.Party, e.UserID)
}

func (e NoSlotsError) Is(target error) bool {
	return target == ErrNoSlots
}

func IsNoSlots(err error) (*NoSlotsError, bool) {
	var ns NoSlotsError
	if errors.As(err, &ns) {
		return &ns, true
	}
	return nil, false
}
