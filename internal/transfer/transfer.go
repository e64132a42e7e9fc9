// Package transfer reads habit imports and writes habit exports.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/models"
)

// ErrInvalidImport marks a payload that cannot be imported. The cause,
// when there is one, stays reachable through errors.Is.
var ErrInvalidImport = errors.New("invalid import")

// ExportDocument is a persisted list stamped with its owner and export time.
type ExportDocument struct {
	UserEmail  string          `json:"user_email"`
	ExportedAt string          `json:"exported_at"`
	Habits     []*models.Habit `json:"habits"`
	Order      []string        `json:"order"`
}

// ParseImport decodes an import payload into a list. Export documents are
// accepted as is; their extra fields are ignored.
func ParseImport(r io.Reader) (*models.HabitList, error) {
	data, err := io.ReadAll(io.LimitReader(r, constants.MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	if len(data) > constants.MaxImportBytes {
		return nil, fmt.Errorf("%w: payload larger than %d bytes", ErrInvalidImport, constants.MaxImportBytes)
	}
	return ParseImportBytes(data)
}

func ParseImportBytes(data []byte) (*models.HabitList, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImport)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	list, err := models.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if list.Len() == 0 {
		return nil, fmt.Errorf("%w: no habits found", ErrInvalidImport)
	}
	return list, nil
}

// NewExport stamps list for userEmail at now.
func NewExport(list *models.HabitList, userEmail string, now time.Time) ExportDocument {
	doc := list.Document()
	return ExportDocument{
		UserEmail:  userEmail,
		ExportedAt: now.Format(constants.ExportTimeFormat),
		Habits:     doc.Habits,
		Order:      doc.Order,
	}
}

// Export writes the indented export document for list to w.
func Export(w io.Writer, list *models.HabitList, userEmail string, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewExport(list, userEmail, now)); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// FileName is the download name of an export made at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("habits_%d.json", now.Unix())
}
