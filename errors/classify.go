package errors

import (
	stderrors "errors"
)

// Coded is implemented by every error that carries an ErrorCode.
type Coded interface {
	error
	ErrorCode() ErrorCode
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost coded error in err's chain.
// A nil error has no code; an uncoded error reports ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coded Coded
	if stderrors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return ErrCodeInternal
}

// IsRetryable reports whether any AppError in the chain is marked retryable.
func IsRetryable(err error) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Retryable {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
