package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/use-agent/renderbridge/models"
)

// LoadOptionsFile reads render options from a JSON file of the shape
//
//	{"timeout": 5000, "waitFor": "#app", "selector": "#content", "script": "..."}
//
// Unknown keys are rejected so a typo'd field does not silently render with
// defaults. Defaults are applied to anything left unset.
func LoadOptionsFile(path string) (*models.RenderOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read options file: %w", err)
	}

	opts, err := ParseOptions(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes render options from raw JSON.
func ParseOptions(data []byte) (*models.RenderOptions, error) {
	var opts models.RenderOptions
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	opts.Defaults()
	return &opts, nil
}
