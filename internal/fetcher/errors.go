package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type InvalidAddressError struct {
	Address string
	Network string
	Reason  string
}

func (e *InvalidAddressError) Error() string {
	if e.Network != "" {
		return fmt.Sprintf("invalid address %q on %s: %s", e.Address, e.Network, e.Reason)
	}
	return fmt.Sprintf("invalid address %q: %s", e.Address, e.Reason)
}

type NetworkUnavailableError struct {
	Network string
	Status  int
	Err     error
}

func (e *NetworkUnavailableError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("network %s unavailable (status %d): %v", e.Network, e.Status, e.Err)
	}
	return fmt.Sprintf("network %s unavailable: %v", e.Network, e.Err)
}

func (e *NetworkUnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a NetworkUnavailableError unless it already is one.
func Unavailable(network string, status int, err error) error {
	var nue *NetworkUnavailableError
	if errors.As(err, &nue) {
		return err
	}
	var iae *InvalidAddressError
	if errors.As(err, &iae) {
		return err
	}
	return &NetworkUnavailableError{Network: network, Status: status, Err: err}
}

func IsInvalidAddress(err error) bool {
	var iae *InvalidAddressError
	return errors.As(err, &iae)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
