package errors

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/julianstephens/habitkeep/internal/logger"
	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/service"
	"github.com/julianstephens/habitkeep/internal/storage"
	"github.com/julianstephens/habitkeep/internal/transfer"
)

// ErrorKind names where an error sits in the habitkeep error taxonomy.
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindPersistence  ErrorKind = "persistence"
	KindCorruptData  ErrorKind = "corrupt_data"
	KindInternal     ErrorKind = "internal"
)

// Kind classifies err by the sentinel it wraps. Corrupt data is checked
// before persistence because a corrupt payload is never a medium failure.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, storage.ErrCorruptData):
		return KindCorruptData
	case errors.Is(err, storage.ErrPersistence):
		return KindPersistence
	case errors.Is(err, service.ErrHabitNotFound):
		return KindNotFound
	case errors.Is(err, transfer.ErrInvalidImport),
		errors.Is(err, models.ErrInvalidName),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrDuplicateID),
		errors.Is(err, models.ErrIDMismatch),
		errors.Is(err, models.ErrInvalidDay),
		errors.Is(err, service.ErrInvalidRequest):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// HTTPStatus maps a kind to the response code the API returns for it.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "kind", Kind(err), "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
