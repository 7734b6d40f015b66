package errors

import "fmt"

// ValidationErrorData contains structured data for validation errors
type ValidationErrorData struct {
	Field    string `json:"field"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ValidationError creates a generic validation error
func ValidationError(message string) MCPError {
	return NewError(CodeValidationError, message, CategoryValidation, SeverityError)
}

// ValidationErrorf creates a generic validation error with formatting
func ValidationErrorf(format string, args ...interface{}) MCPError {
	return NewErrorf(CodeValidationError, CategoryValidation, SeverityError, format, args...)
}

// VersionMismatch is returned when the server answers initialize with a
// protocol version other than the one requested
func VersionMismatch(expected, actual string) MCPError {
	return NewError(
		CodeVersionMismatch,
		fmt.Sprintf("protocol version mismatch: expected %s, got %s", expected, actual),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{
		Field:    "protocolVersion",
		Expected: expected,
		Got:      actual,
	})
}

// InvalidConfig reports a configuration value that cannot be used
func InvalidConfig(field, reasonText string) MCPError {
	return NewError(
		CodeInvalidConfig,
		fmt.Sprintf("invalid configuration %s: %s", field, reasonText),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{
		Field:  field,
		Reason: reasonText,
	})
}

// CombineValidationErrors folds several validation errors into one. A
// single error is returned unchanged.
func CombineValidationErrors(errs []MCPError) MCPError {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}

	return NewError(
		CodeValidationError,
		fmt.Sprintf("%d validation errors", len(errs)),
		CategoryValidation,
		SeverityError,
	).WithData(map[string]interface{}{
		"errors": messages,
	})
}
