package models

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every typed error below matches exactly one of them.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrProviderNotReady = errors.New("provider not ready")
	ErrNoWallet         = errors.New("no wallet")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrAccountFetch     = errors.New("account fetch failed")
	ErrBlockFetch       = errors.New("block fetch failed")
	ErrPersistence      = errors.New("persistence failed")
	ErrSessionInvalid   = errors.New("session invalid")
	ErrInvalidAddress   = errors.New("invalid address")
)

// ConfigurationError reports a missing or unknown network or provider.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConfigurationError) Unwrap() error        { return e.Err }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ProviderNotReadyError is returned when a provider has not finished init or failed it.
type ProviderNotReadyError struct {
	ProviderID string
	Status     string
	Err        error
}

func (e *ProviderNotReadyError) Error() string {
	msg := fmt.Sprintf("provider %s is not ready (status: %s)", e.ProviderID, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderNotReadyError) Unwrap() error        { return e.Err }
func (e *ProviderNotReadyError) Is(target error) bool { return target == ErrProviderNotReady }

// NoWalletError means no wallet was passed and none is available as the recent one.
type NoWalletError struct {
	Operation string
}

func (e *NoWalletError) Error() string {
	return fmt.Sprintf("no wallet available for %s", e.Operation)
}

func (e *NoWalletError) Is(target error) bool { return target == ErrNoWallet }

// InvalidMessageError is raised by normalizers before any network call.
type InvalidMessageError struct {
	TypeURL string
	Reason  string
}

func (e *InvalidMessageError) Error() string {
	if e.TypeURL == "" {
		return "invalid message: " + e.Reason
	}
	return fmt.Sprintf("invalid message %s: %s", e.TypeURL, e.Reason)
}

func (e *InvalidMessageError) Is(target error) bool { return target == ErrInvalidMessage }

// AccountFetchError wraps a failed account query.
type AccountFetchError struct {
	Address string
	URL     string
	Err     error
}

func (e *AccountFetchError) Error() string {
	return fmt.Sprintf("failed to fetch account %s from %s: %v", e.Address, e.URL, e.Err)
}

func (e *AccountFetchError) Unwrap() error        { return e.Err }
func (e *AccountFetchError) Is(target error) bool { return target == ErrAccountFetch }

// BlockFetchError wraps a failed latest block query.
type BlockFetchError struct {
	URL string
	Err error
}

func (e *BlockFetchError) Error() string {
	return fmt.Sprintf("failed to fetch latest block from %s: %v", e.URL, e.Err)
}

func (e *BlockFetchError) Unwrap() error        { return e.Err }
func (e *BlockFetchError) Is(target error) bool { return target == ErrBlockFetch }

// PersistenceError wraps a failed snapshot read or write. It is never fatal.
type PersistenceError struct {
	Key string
	Op  string // "read", "write" or "decode"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s persisted wallets under %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error        { return e.Err }
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// SessionInvalidError marks a persisted session that the provider no longer recognises.
type SessionInvalidError struct {
	WalletID string
	Err      error
}

func (e *SessionInvalidError) Error() string {
	return fmt.Sprintf("session %s is no longer valid: %v", e.WalletID, e.Err)
}

func (e *SessionInvalidError) Unwrap() error        { return e.Err }
func (e *SessionInvalidError) Is(target error) bool { return target == ErrSessionInvalid }

// InvalidAddressError means a reported account does not hold together: the
// public key does not derive the address it claims.
type InvalidAddressError struct {
	Address string
	Reason  string
	Err     error
}

func (e *InvalidAddressError) Error() string {
	msg := fmt.Sprintf("invalid address %s: %s", e.Address, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidAddressError) Unwrap() error        { return e.Err }
func (e *InvalidAddressError) Is(target error) bool { return target == ErrInvalidAddress }
