package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns persistence errors into a code and a safe message. context names the
// operation (e.g. "driver lookup", "verification update") and only steers the wording.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "An internal error occurred"}
	}

	errStr := err.Error()
	errLower := strings.ToLower(errStr)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: notFoundCode(context), Message: getNotFoundMessage(context)}
	}

	// PostgreSQL 23505 / SQLite UNIQUE
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// 23503
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
	}

	// 23502
	if strings.Contains(errLower, "null value") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A dependent service is unavailable. Please try again shortly",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "license_number"):
		return ErrorInfo{Code: DriverLicenseExists, Message: "This license number is already registered"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: DriverEmailExists, Message: "This email address is already registered"}
	case strings.Contains(errLower, "phone"):
		return ErrorInfo{Code: DriverPhoneExists, Message: "This phone number is already registered"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func notFoundCode(context string) string {
	if strings.Contains(strings.ToLower(context), "driver") {
		return DriverNotFound
	}
	return ResourceNotFound
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "driver"):
		return "Driver not found"
	case strings.Contains(contextLower, "document"):
		return "Document not found"
	case strings.Contains(contextLower, "attempt"), strings.Contains(contextLower, "verification"):
		return "No verification record found"
	}
	return "The requested record was not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "approve"):
		return "Approval could not be saved. Please try again later"
	case strings.Contains(contextLower, "reject"):
		return "Rejection could not be saved. Please try again later"
	case strings.Contains(contextLower, "verif"):
		return "Verification results could not be saved. Please try again later"
	case strings.Contains(contextLower, "kyc"):
		return "Your KYC submission could not be saved. Please try again later"
	}
	return "An internal error occurred. Please try again later"
}

// ParseAndRespond parses err and writes it with the given status.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
