package services

import "errors"

// Typed failures shared across the services. Command handlers translate
// these to user-facing text; the HTTP boundary maps them to status codes.
// Nothing below ever crosses the transport boundary as a raised fault.
var (
	// ErrNotFound covers absent or already-consumed tokens, alerts and
	// watchlist entries.
	ErrNotFound = errors.New("not found")

	// ErrTokenExpired means the link token exists but its deadline passed.
	ErrTokenExpired = errors.New("link token expired")

	// ErrAlreadyLinked rejects issuing a link token while a wallet is bound.
	ErrAlreadyLinked = errors.New("wallet already linked")

	// ErrSignatureMismatch means the recovered signer differs from the
	// claimed address.
	ErrSignatureMismatch = errors.New("signature does not match claimed address")

	// ErrMalformedSignature means the signature is structurally invalid.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrInvalid covers malformed command arguments, addresses and prices.
	ErrInvalid = errors.New("invalid input")

	// ErrQuotaExceeded means the per-user ceiling for a resource is reached.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrUnavailable means a collaborator (store, feed, RPC, transport)
	// failed or returned something unusable.
	ErrUnavailable = errors.New("collaborator unavailable")
)
