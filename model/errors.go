package model

import "errors"

var (
	// ErrInvalidRequest marks structural or semantic violations of the
	// request contract. The wrapped message carries the offending field path.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupportedOption marks an attempt to change a policy-locked option.
	ErrUnsupportedOption = errors.New("unsupported option")
	// ErrQueryMismatch marks a point query whose altitude does not match the
	// computed slice, or whose nearest cell holds no data.
	ErrQueryMismatch = errors.New("query mismatch")
	// ErrBandNotFound marks a query against a band the result does not hold.
	ErrBandNotFound = errors.New("band not found")
)
