package pagmo

import "errors"

// Configuration and connectivity errors, per spec.md §7's error
// taxonomy. All are non-fatal: the island's state is left unchanged
// and the caller may retry.
var (
	// ErrNotConfigured is returned by Initialise when broker host,
	// broker port or token have not all been set yet.
	ErrNotConfigured = errors.New("pagmo: island is not configured: broker host, broker port and token must all be set")

	// ErrMissingAdvertisedIP is returned by Initialise when called
	// with an empty advertised IP.
	ErrMissingAdvertisedIP = errors.New("pagmo: advertised IP must be provided to initialise")

	// ErrBrokerUnreachable is returned when connecting to the
	// registry broker fails.
	ErrBrokerUnreachable = errors.New("pagmo: broker unreachable")

	// ErrAlreadyInitialised is returned by Initialise when the
	// island has already completed initialisation and has not been
	// closed since.
	ErrAlreadyInitialised = errors.New("pagmo: island is already initialised")
)
