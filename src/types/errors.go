package types

import "errors"

// Sentinel errors for the ticket inventory core. Handlers translate these
// into HTTP statuses: ErrNotFound -> 404, ErrInvalidState and
// ErrDependentData -> 409. Anything else is a 400.
var (
	// ErrNotFound means the referenced raffle, ticket, participant,
	// payment or drawing does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the entity is not in the source state the
	// requested transition needs (selling a sold ticket, refunding an
	// available one, editing a closed raffle).
	ErrInvalidState = errors.New("invalid state")

	// ErrDependentData means the operation is blocked by existing
	// dependent rows, e.g. deleting a raffle that has sold tickets.
	ErrDependentData = errors.New("blocked by dependent data")
)
