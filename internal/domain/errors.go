package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Sync and pipeline error codes. RowShape skips one row, SourceLoad aborts
// the whole pass, StoreTransaction rolls back one row's mutation pair, and
// StageProcessing degrades an upload to pass-through.
const (
	ErrCodeRowShape         = "ROW_SHAPE_ERROR"
	ErrCodeSourceLoad       = "SOURCE_LOAD_ERROR"
	ErrCodeStoreTransaction = "STORE_TRANSACTION_ERROR"
	ErrCodeStageProcessing  = "STAGE_PROCESSING_ERROR"
)

// Validation errors
var (
	ErrInvalidDocumentType       = NewDomainError(ErrCodeValidation, "invalid document type")
	ErrInvalidSyncRunStatus      = NewDomainError(ErrCodeValidation, "invalid sync run status")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrInvalidProvenance         = NewDomainError(ErrCodeValidation, "invalid provenance")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrContentNotFound = NewDomainError(ErrCodeNotFound, "content unit not found")
	ErrSyncRunNotFound = NewDomainError(ErrCodeNotFound, "sync run not found")
)

// Already exists errors
var (
	ErrContentAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "content unit already exists")
)

// Authorization errors
var (
	ErrInvalidToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)

// Operation errors
var (
	ErrSyncInProgress       = NewDomainError(ErrCodeInvalidOperation, "a sync pass is already in flight")
	ErrBulkContentImmutable = NewDomainError(ErrCodeInvalidOperation, "bulk-sourced content is owned by sync, edit the source file instead")
)

// Sync and pipeline errors
var (
	ErrRowShape         = NewDomainError(ErrCodeRowShape, "row has no usable content")
	ErrSourceLoad       = NewDomainError(ErrCodeSourceLoad, "source file could not be loaded")
	ErrStoreTransaction = NewDomainError(ErrCodeStoreTransaction, "store mutation failed")
	ErrStageProcessing  = NewDomainError(ErrCodeStageProcessing, "pipeline stage failed")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
