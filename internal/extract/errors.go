package extract

import "errors"

var (
	// ErrNoProfileExtracted is returned when no document in a batch yielded a profile with a client id
	ErrNoProfileExtracted = errors.New("no loan profile data could be extracted")
	// ErrAmbiguousClientBatch is returned when a single-client batch resolves profiles for different clients
	ErrAmbiguousClientBatch = errors.New("batch contains profiles for more than one client")
	// ErrMalformedRow marks a transaction row that does not fit the five-field shape
	ErrMalformedRow = errors.New("malformed transaction row")
)
