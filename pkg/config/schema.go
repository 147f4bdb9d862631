package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchemaViolation indicates the config file does not match the schema.
var ErrSchemaViolation = errors.New("config does not match schema")

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON schema of the config file.
func Schema() []byte {
	return schemaJSON
}

// ValidateFile checks a YAML config file against the schema. Unknown keys are
// reported, which viper alone silently ignores.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var settings map[string]any

	err = yaml.Unmarshal(data, &settings)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if settings == nil {
		return nil
	}

	return ValidateSchema(settings)
}

// ValidateSchema checks raw settings against the schema and reports every
// violation.
func ValidateSchema(settings map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(settings),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]error, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Errorf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %w", ErrSchemaViolation, errors.Join(violations...))
}
