package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/julianstephens/habitkeep/internal/constants"
)

// GenerateID derives a short id from the habit name and a random salt, so two
// habits created with the same name still get distinct ids.
func GenerateID(name string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + uuid.NewString()))
	return hex.EncodeToString(sum[:])[:constants.HabitIDLength]
}

// ValidateName trims name and checks it is 1-100 printable runes.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(trimmed); n > constants.MaxHabitNameLength {
		return "", fmt.Errorf("%w: name is %d characters, max %d", ErrInvalidName, n, constants.MaxHabitNameLength)
	}
	for _, r := range trimmed {
		if !unicode.IsPrint(r) {
			return "", fmt.Errorf("%w: name contains non-printable character %U", ErrInvalidName, r)
		}
	}
	return trimmed, nil
}
