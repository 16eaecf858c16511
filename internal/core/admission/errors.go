package admission

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrDomainConflict is returned when the domain is already bound to another application.
	ErrDomainConflict = errors.New("domain already in use")

	// ErrDNSMismatch is returned when the domain does not resolve to this host.
	ErrDNSMismatch = errors.New("domain does not point to this host")
)

// Kind tags an admission failure.
type Kind string

const (
	KindDomainConflict Kind = "domain_conflict"
	KindDNSMismatch    Kind = "dns_mismatch"
)

// Error is a rejected admission. Message is safe to show to users.
type Error struct {
	Kind    Kind
	Domain  string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindDomainConflict:
		return target == ErrDomainConflict
	case KindDNSMismatch:
		return target == ErrDNSMismatch
	}
	return false
}

func conflictError(domain string) *Error {
	return &Error{
		Kind:    KindDomainConflict,
		Domain:  domain,
		Message: fmt.Sprintf("Domain %s is already used.", domain),
	}
}

func mismatchError(domain string) *Error {
	return &Error{
		Kind:    KindDNSMismatch,
		Domain:  domain,
		Message: fmt.Sprintf("DNS not set correctly or not propagated yet for %s. Please check your DNS records.", domain),
	}
}
