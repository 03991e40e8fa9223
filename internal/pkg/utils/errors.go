package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited indicates the generative service returned a rate limit condition
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrQuotaExhausted indicates the generative service account is out of credits
	ErrQuotaExhausted = errors.New("credits exhausted")
	// ErrTimeout indicates polling exceeded the attempt ceiling
	ErrTimeout = errors.New("transcription timeout")
)

// ErrValidation indicates bad input detected before any network call
type ErrValidation struct {
	msg string
}

// NewErrValidation creates new validation error
func NewErrValidation(format string, args ...interface{}) error {
	return &ErrValidation{msg: fmt.Sprintf(format, args...)}
}

func (e *ErrValidation) Error() string {
	return e.msg
}

// ErrUpstream indicates an external collaborator is unreachable or failing
type ErrUpstream struct {
	Service string
	err     error
}

// NewErrUpstream creates new upstream error
func NewErrUpstream(service string, err error) error {
	return &ErrUpstream{Service: service, err: err}
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Service, e.err.Error())
}

func (e *ErrUpstream) Unwrap() error {
	return e.err
}

// ErrTranscriptionFailed indicates the upstream job reported a terminal error
type ErrTranscriptionFailed struct {
	Msg string
}

func (e *ErrTranscriptionFailed) Error() string {
	if e.Msg == "" {
		return "transcription failed"
	}
	return "transcription failed: " + e.Msg
}

// ErrQuotaLimit indicates the monthly clip generation cap is reached.
// Carries tier and limit so the caller can decide to wait or upgrade.
type ErrQuotaLimit struct {
	Tier  string
	Limit int
}

func (e *ErrQuotaLimit) Error() string {
	return fmt.Sprintf("monthly clip limit reached (%d) for plan '%s'", e.Limit, e.Tier)
}
