package domain

import "errors"

var (
	// ErrProviderUnavailable marks a market or venue network/HTTP failure.
	// Recoverable: the next poll cycle retries.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotFound is returned for single-market lookups of unknown IDs.
	ErrNotFound = errors.New("not found")

	// ErrAnalysisUnavailable marks a failed analysis service call. The
	// affected opportunity is skipped; the batch continues.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")

	// ErrNotApproved is returned when execution is attempted on an alert
	// that is not in the APPROVED state.
	ErrNotApproved = errors.New("alert not approved")

	// ErrApprovalRequired is returned when auto-approve is disabled and no
	// operator approval was recorded.
	ErrApprovalRequired = errors.New("explicit approval required")

	// ErrOrderRejected marks a venue-side order failure. Terminal for the
	// trade and its alert, never for the process.
	ErrOrderRejected = errors.New("order rejected")

	// ErrConfigInvalid marks missing or inconsistent configuration, e.g.
	// execution attempted without venue credentials.
	ErrConfigInvalid = errors.New("invalid configuration")
)
