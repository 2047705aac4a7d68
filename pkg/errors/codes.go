package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeInvalidInput   ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_003"
	ErrCodeNotImplemented ErrorCode = "COMMON_004"

	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Configuration error codes.  Configuration errors indicate bad input data or
// a bad run setup; they are fatal to the run that raised them and are never
// retried.
const (
	ErrCodeConfigInvalid       ErrorCode = "CFG_001"
	ErrCodeLabelAbsent         ErrorCode = "CFG_002"
	ErrCodeSchemaMismatch      ErrorCode = "CFG_003"
	ErrCodeCorpusUnreadable    ErrorCode = "CFG_004"
	ErrCodeFoldCountInvalid    ErrorCode = "CFG_005"
	ErrCodeDuplicateDocumentID ErrorCode = "CFG_006"
)

// Data error codes.  Data errors abort a single pairwise task; the sweep
// continues and reports the task as a missing row.
const (
	ErrCodeInsufficientData ErrorCode = "DATA_001"
	ErrCodeDegenerateLabels ErrorCode = "DATA_002"
	ErrCodeEmptySubset      ErrorCode = "DATA_003"
)

// Model error codes.  Numeric-instability conditions are handled inside model
// selection (the affected fold is excluded from the cross-validation mean);
// the code surfaces only when every fold degenerates.
const (
	ErrCodeNumericInstability ErrorCode = "MODEL_001"
	ErrCodeNotTrained         ErrorCode = "MODEL_002"
	ErrCodeDimensionMismatch  ErrorCode = "MODEL_003"
)

// Results-store error codes.  Store failures are fatal only to persistence;
// the in-memory sweep result is still returned to the caller.
const (
	ErrCodeStoreConnection ErrorCode = "STORE_001"
	ErrCodeStoreQuery      ErrorCode = "STORE_002"
	ErrCodeStoreMigration  ErrorCode = "STORE_003"
)
