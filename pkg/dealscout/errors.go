package dealscout

import "github.com/dealscout/dealscout/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound    = domain.ErrNotFound
	ErrRemoteQuery = domain.ErrRemoteQuery
	ErrInvalidMode = domain.ErrInvalidMode
	// ErrInvalidOffset is returned for negative offsets and offsets too
	// large to page from.
	ErrInvalidOffset = domain.ErrInvalidOffset
)
