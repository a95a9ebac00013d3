package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidMultiplier    ErrorCode = 104
	ErrCodeMissingCredentials   ErrorCode = 105

	// Indicator errors (200-299)
	ErrCodeInsufficientData     ErrorCode = 200
	ErrCodeIndicatorCalculation ErrorCode = 201

	// Market data errors (300-399)
	ErrCodeDataSourceFailure ErrorCode = 300
	ErrCodeNoDataAvailable   ErrorCode = 301
	ErrCodeDataParseFailed   ErrorCode = 302

	// Execution errors (400-499)
	ErrCodeInsufficientBalance ErrorCode = 400
	ErrCodeBelowMinimumOrder   ErrorCode = 401
	ErrCodeVenueRejected       ErrorCode = 402
	ErrCodeVenueTimeout        ErrorCode = 403
	ErrCodeNetworkError        ErrorCode = 404
	ErrCodeAllVenuesFailed     ErrorCode = 405
	ErrCodeSigningFailed       ErrorCode = 406
	ErrCodeConfirmationFailed  ErrorCode = 407

	// Bot lifecycle errors (500-599)
	ErrCodeBotAlreadyRunning ErrorCode = 500
	ErrCodeBotNotRunning     ErrorCode = 501
	ErrCodeBotNotRegistered  ErrorCode = 502

	// Storage errors (600-699)
	ErrCodeStorageFailure ErrorCode = 600
	ErrCodeRecordNotFound ErrorCode = 601
)
