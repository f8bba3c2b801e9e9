package errors

import (
	"errors"
	"fmt"
)

// Error types for different failure classes in the claims engine
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBusiness     ErrorType = "business"
	ErrorTypeSolvency     ErrorType = "solvency"
	ErrorTypeConcurrency  ErrorType = "concurrency"
	ErrorTypeArithmetic   ErrorType = "arithmetic"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying the details. The
// receiver, which is often a shared sentinel, is never mutated.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy of the error wrapping the cause.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// Is matches AppErrors by code so wrapped copies compare equal to sentinels.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeBusiness,
		Code:    code,
		Message: message,
	}
}

func NewSolvencyError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeSolvency,
		Code:    code,
		Message: message,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    "RESOURCE_NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

func NewArithmeticError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeArithmetic,
		Code:    "ARITHMETIC_ERROR",
		Message: message,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
}

// Predefined errors for the claim lifecycle
var (
	ErrPolicyInactive        = NewValidationError("POLICY_INACTIVE", "Policy is not active")
	ErrPolicyExpired         = NewValidationError("POLICY_EXPIRED", "Policy has expired")
	ErrWaitingPeriodActive   = NewValidationError("WAITING_PERIOD_ACTIVE", "Policy waiting period is still active")
	ErrExceedsCoverage       = NewValidationError("EXCEEDS_COVERAGE", "Claim amount exceeds policy coverage")
	ErrTooManyRecentClaims   = NewValidationError("TOO_MANY_RECENT_CLAIMS", "Too many recent claims")
	ErrInvalidClaimStatus    = NewValidationError("INVALID_CLAIM_STATUS", "Invalid claim status for this operation")
	ErrInsufficientEvidence  = NewValidationError("INSUFFICIENT_EVIDENCE", "Insufficient evidence submitted")
	ErrNotClaimOwner         = NewUnauthorizedError("Not the claim owner")
	ErrNotPolicyOwner        = NewUnauthorizedError("Not the policy owner")
	ErrUnauthorizedEvidence  = &AppError{Type: ErrorTypeUnauthorized, Code: "UNAUTHORIZED_EVIDENCE", Message: "Unauthorized evidence submission"}
	ErrDuplicateEvidence     = NewConflictError("DUPLICATE_EVIDENCE", "Duplicate evidence hash for this claim")
	ErrEvidenceCapacity      = NewValidationError("EVIDENCE_CAPACITY_EXCEEDED", "Evidence capacity exceeded for this claim")
	ErrAlreadyVoted          = NewConflictError("ALREADY_VOTED", "Voter has already voted on this claim")
	ErrVotingPeriodEnded     = NewValidationError("VOTING_PERIOD_ENDED", "Voting period has ended")
	ErrDisputePeriodEnded    = NewValidationError("DISPUTE_PERIOD_ENDED", "Dispute window has closed")
	ErrInsufficientLiquidity = NewSolvencyError("INSUFFICIENT_LIQUIDITY", "Withdrawal would violate the reserve ratio")
	ErrInsufficientPoolFunds = NewSolvencyError("INSUFFICIENT_POOL_FUNDS", "Insufficient funds in risk pool")
	ErrInsufficientFunds     = NewBusinessError("INSUFFICIENT_FUNDS", "Insufficient funds")
	ErrReentrancyDetected    = &AppError{Type: ErrorTypeConcurrency, Code: "REENTRANCY_DETECTED", Message: "External call already in progress"}
	ErrPoolPaused            = NewValidationError("POOL_PAUSED", "Risk pool is paused")
	ErrInvalidAmount         = NewValidationError("INVALID_AMOUNT", "Amount must be positive")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

// IsSolvency reports whether err is a solvency error.
func IsSolvency(err error) bool { return IsType(err, ErrorTypeSolvency) }
