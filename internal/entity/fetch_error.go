package entity

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies a failed chain fetch.
type FetchErrorKind int

const (
	// FetchNetwork means the endpoint was unreachable or timed out; retryable.
	FetchNetwork FetchErrorKind = iota
	// FetchDecode means the endpoint answered with a malformed body; not retryable.
	FetchDecode
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNetwork:
		return "network_error"
	case FetchDecode:
		return "decode_error"
	default:
		return "unknown_error"
	}
}

// FetchError is the tagged error returned by the chain account client.
// An address with no on-chain account is not an error: it yields a valid
// zero Balance instead.
type FetchError struct {
	Kind  FetchErrorKind
	Chain string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Kind, e.Chain, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewNetworkError wraps err as a retryable network failure.
func NewNetworkError(chain string, err error) *FetchError {
	return &FetchError{Kind: FetchNetwork, Chain: chain, Err: err}
}

// NewDecodeError wraps err as a non-retryable decode failure.
func NewDecodeError(chain string, err error) *FetchError {
	return &FetchError{Kind: FetchDecode, Chain: chain, Err: err}
}

// IsRetryable reports whether err is a FetchError worth retrying.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchNetwork
}
