package tracker

import (
	"errors"
	"fmt"
)

var (
	// Fatal before any session is attempted.
	ErrConfiguration = errors.New("tracker credentials are not configured")

	// Fatal for the run, never retried automatically.
	ErrAuthentication = errors.New("authentication against the time tracker failed")
	ErrBotChallenge   = fmt.Errorf("%w: bot challenge detected", ErrAuthentication)

	ErrNavigationTimeout = errors.New("report page did not settle in time")

	// Logged per row, never returned from a published operation.
	ErrExtractionMismatch = errors.New("row could not be attributed to a known layout")

	// Logged only.
	ErrSessionTeardown = errors.New("failed to close browser session")

	ErrRunNotFound = errors.New("check run not found")
)
