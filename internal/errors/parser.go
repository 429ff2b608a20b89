package errors

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE for undefined_table
const pgUndefinedTable = "42P01"

// ErrorInfo is a user-safe code and message pair
type ErrorInfo struct {
	Code    string // codes.go
	Message string
}

// ParseError maps an internal error to a code and message safe to show a client.
// SQL text and driver details never end up in the message.
func ParseError(err error, action string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Internal server error",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(action),
		}
	}

	// Unique constraint violation (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}

	// Not null constraint violation (23502)
	if strings.Contains(errStrLower, "not null constraint") || strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if IsMissingTable(err) {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "Storage is temporarily unavailable. Please try again later",
		}
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "Could not reach a dependent service. Please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(action),
	}
}

// IsMissingTable reports whether err comes from querying a table that does not exist.
// Covers SQLite ("no such table") and PostgreSQL (SQLSTATE 42P01).
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such table") {
		return true
	}
	return strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "email") || strings.Contains(errLower, "idx_users_email") {
		return ErrorInfo{
			Code:    AuthEmailAlreadyExists,
			Message: "Email is already in use",
		}
	}
	if strings.Contains(errLower, "setting_key") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "The setting was changed concurrently. Please try again",
		}
	}
	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "The record already exists",
	}
}

func getNotFoundMessage(action string) string {
	contextLower := strings.ToLower(action)

	switch {
	case strings.Contains(contextLower, "user"):
		return "User not found"
	case strings.Contains(contextLower, "setting"):
		return "Setting not found"
	case strings.Contains(contextLower, "audit"):
		return "Audit log not found"
	}
	return "The requested resource was not found"
}

func getDefaultErrorMessage(action string) string {
	contextLower := strings.ToLower(action)

	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "register"):
		return "Failed to create the record. Please try again later"
	case strings.Contains(contextLower, "update"), strings.Contains(contextLower, "reset"):
		return "Failed to update the record. Please try again later"
	case strings.Contains(contextLower, "maintenance"):
		return "Failed to change maintenance settings. Please try again later"
	}
	return "Internal server error, please try again later"
}

// ParseAndRespond parses err and writes it as an ErrorResponse
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, action string) {
	errorInfo := ParseError(err, action)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
