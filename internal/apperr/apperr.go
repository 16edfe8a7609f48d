// Package apperr defines the structured errors the budget engine surfaces to
// callers. Every error carries a stable code so the HTTP and CLI shells can
// report failures without string matching.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Stable error codes.
const (
	CodeInsufficientData   = "INSUFFICIENT_DATA"
	CodeEstimation         = "ESTIMATION_ERROR"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeComputationTimeout = "COMPUTATION_TIMEOUT"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// Coded is implemented by every error in this package.
type Coded interface {
	error
	Code() string
	Details() []string
}

// InsufficientDataError reports mandatory briefing fields that are still
// missing after fallback. It is never retried.
type InsufficientDataError struct {
	Fields []string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: missing " + strings.Join(e.Fields, ", ")
}

func (e *InsufficientDataError) Code() string      { return CodeInsufficientData }
func (e *InsufficientDataError) Details() []string { return e.Fields }

// EstimationError reports a fallback heuristic that failed. The fallback
// engine downgrades it to a warning; it only escapes when a caller asks.
type EstimationError struct {
	Field string
	Err   error
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("estimation of %s failed: %v", e.Field, e.Err)
}

func (e *EstimationError) Unwrap() error     { return e.Err }
func (e *EstimationError) Code() string      { return CodeEstimation }
func (e *EstimationError) Details() []string { return []string{e.Field} }

// ConfigurationError lists every range violation found in a tenant
// configuration. No auto-correction is attempted.
type ConfigurationError struct {
	Violations []string
}

func (e *ConfigurationError) Error() string {
	return "invalid office configuration: " + strings.Join(e.Violations, "; ")
}

func (e *ConfigurationError) Code() string      { return CodeConfiguration }
func (e *ConfigurationError) Details() []string { return e.Violations }

// ComputationTimeoutError reports a dispatcher batch that did not finish in
// its window.
type ComputationTimeoutError struct {
	Unresolved []string
	Timeout    string
}

func (e *ComputationTimeoutError) Error() string {
	return fmt.Sprintf("computation timed out after %s with %d unfinished task(s): %s",
		e.Timeout, len(e.Unresolved), strings.Join(e.Unresolved, ", "))
}

func (e *ComputationTimeoutError) Code() string      { return CodeComputationTimeout }
func (e *ComputationTimeoutError) Details() []string { return e.Unresolved }

// NotFoundError reports a missing stored entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string     { return fmt.Sprintf("%s not found: %s", e.Entity, e.ID) }
func (e *NotFoundError) Code() string      { return CodeNotFound }
func (e *NotFoundError) Details() []string { return []string{e.ID} }

// InvalidTransitionError reports a disallowed budget status change.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("status transition %s -> %s is not allowed", e.From, e.To)
}

func (e *InvalidTransitionError) Code() string      { return CodeInvalidTransition }
func (e *InvalidTransitionError) Details() []string { return []string{e.From, e.To} }

// InvalidInputError reports a request that could not be decoded or is
// structurally wrong.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string     { return "invalid input: " + e.Reason }
func (e *InvalidInputError) Code() string      { return CodeInvalidInput }
func (e *InvalidInputError) Details() []string { return nil }

// CodeOf returns the stable code of the first coded error in err's chain,
// CodeInternal for uncoded errors and "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if c, ok := AsCoded(err); ok {
		return c.Code()
	}
	return CodeInternal
}

// AsCoded finds the first coded error in err's chain.
func AsCoded(err error) (Coded, bool) {
	if err == nil {
		return nil, false
	}
	var c Coded
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
