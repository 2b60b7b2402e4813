package detect

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrOutOfOrder marks an event stream violating the total order
	// (period, -clock, sequence). Fatal to the game: the state machine's
	// correctness depends on strict order, so input is never reordered.
	ErrOutOfOrder = errors.New("event stream out of order")

	// ErrConstruction marks an invariant violation while sealing a
	// possession. Fatal to the game.
	ErrConstruction = errors.New("possession construction failed")
)
