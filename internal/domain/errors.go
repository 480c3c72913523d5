package domain

import (
	"errors"
)

// KeyPrefix namespaces every key dealscout writes to a shared key-value store.
const KeyPrefix = "dealscout:"

var (
	// ErrNotFound signals a missing listing.
	ErrNotFound = errors.New("not found")
	// ErrRemoteQuery signals a failure of the remote listing store (network or store-side).
	ErrRemoteQuery = errors.New("remote query failed")
	// ErrInvalidMode signals an unknown buy/rent mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidOffset signals a page offset that is negative or too large to address.
	ErrInvalidOffset = errors.New("invalid offset")
	// ErrInvalidListing signals a stored row that cannot be mapped to a listing.
	ErrInvalidListing = errors.New("invalid listing")
)
