package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
)

// statusFile is the on-disk shape of the status catalogue:
//
//	statuses:
//	  - Application_In_Progress
//	  - Application_Submitted
type statusFile struct {
	Statuses []model.ApplicationStatus `yaml:"statuses"`
}

// LoadStatusCatalogue reads the application status catalogue. An empty path
// yields the built-in catalogue.
func LoadStatusCatalogue(path string) (*lifecycle.StatusCatalogue, error) {
	if path == "" {
		return lifecycle.DefaultCatalogue(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read status catalogue: %w", err)
	}
	return ParseStatusCatalogue(raw)
}

// ParseStatusCatalogue decodes a YAML status catalogue.
func ParseStatusCatalogue(raw []byte) (*lifecycle.StatusCatalogue, error) {
	var f statusFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode status catalogue: %w", err)
	}
	return lifecycle.NewStatusCatalogue(f.Statuses)
}
