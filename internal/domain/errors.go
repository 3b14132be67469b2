package domain

import "errors"

var (
	// ErrMissingCredential is raised at client construction when no API key
	// is configured. Surfaced before any generation attempt.
	ErrMissingCredential = errors.New("missing api credential")

	// ErrMalformedResponse means script generation returned text from which
	// no well-formed JSON object could be extracted.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrNoResourceFound means an image or speech response contained no
	// URL-shaped substring to fetch the asset from.
	ErrNoResourceFound = errors.New("no resource url in model response")

	// ErrTotalFailure means zero scenes obtained either asset type; the only
	// pipeline outcome that blocks handoff to downstream consumers.
	ErrTotalFailure = errors.New("no scene obtained any asset")
)
