package domain

import "errors"

var (
	ErrContentRequired   = errors.New("content is required")
	ErrNotFound          = errors.New("message not found")
	ErrNothingToUpdate   = errors.New("nothing to update")
	ErrInvalidBatchShape = errors.New("invalid arrangement batch")
	ErrStoreUnavailable  = errors.New("message store unavailable")

	// ErrArrangementExhausted means a new message cannot be placed because
	// the highest order index or the next grid slot is at the column limit
	ErrArrangementExhausted = errors.New("no arrangement slot left for a new message")
)

// Code returns the stable machine-readable code for a domain error
func Code(err error) string {
	switch {
	case errors.Is(err, ErrContentRequired):
		return "CONTENT_REQUIRED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNothingToUpdate):
		return "NOTHING_TO_UPDATE"
	case errors.Is(err, ErrInvalidBatchShape):
		return "INVALID_BATCH_SHAPE"
	case errors.Is(err, ErrArrangementExhausted):
		return "ARRANGEMENT_EXHAUSTED"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
