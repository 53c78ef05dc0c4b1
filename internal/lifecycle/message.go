package lifecycle

import (
	"errors"
	"strings"

	"github.com/stemsi/abroad-backend/internal/model"
)

// Message errors.
var (
	ErrEmptyMessage = errors.New("message needs content or at least one file")
	ErrTooManyFiles = errors.New("message can carry at most 3 files")
)

// ValidateMessage checks a message draft before anything is sent.
func ValidateMessage(content string, fileCount int) error {
	if strings.TrimSpace(content) == "" && fileCount == 0 {
		return ErrEmptyMessage
	}
	if fileCount > model.MaxMessageFiles {
		return ErrTooManyFiles
	}
	return nil
}
