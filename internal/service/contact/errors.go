package contact

import "errors"

// Sentinel errors for the contact service layer.
var (
	// ErrConfirmationRequired is returned by Clear when the caller did not
	// supply the exact confirmation phrase.
	ErrConfirmationRequired = errors.New("confirmation phrase required")
)

// ClearConfirmation is the phrase a caller must echo back before the
// contact table is wiped.
const ClearConfirmation = "yes-clear-all-data"
