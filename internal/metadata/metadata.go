// Package metadata validates the JSON metadata that accompanies uploaded
// snapshots and turns it into typed values with defaults applied.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/xerrors"
)

const defaultUser = "Unknown"

type Baseline struct {
	IssueKey      string `json:"issueKey"`
	NodeID        string `json:"nodeId"`
	NodeName      string `json:"nodeName"`
	FileKey       string `json:"fileKey"`
	PageName      string `json:"pageName"`
	User          string `json:"user"`
	StructureJSON string `json:"structureJson"`
}

type Comparison struct {
	BaselineID    string `json:"baselineId"`
	IssueKey      string `json:"issueKey"`
	SlackChannel  string `json:"slackChannel"`
	NodeID        string `json:"nodeId"`
	NodeName      string `json:"nodeName"`
	StructureJSON string `json:"structureJson"`
}

type FieldError struct {
	Field       string
	Description string
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	descriptions := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		descriptions = append(descriptions, fmt.Sprintf("%s: %s", fe.Field, fe.Description))
	}
	return "invalid metadata: " + strings.Join(descriptions, "; ")
}

var (
	baselineSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(baselineSchemaJSON))
	})
	comparisonSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(comparisonSchemaJSON))
	})
)

func ParseBaseline(data []byte) (*Baseline, error) {
	var b Baseline
	if err := parse(baselineSchema, data, &b); err != nil {
		return nil, err
	}
	if b.User == "" {
		b.User = defaultUser
	}
	return &b, nil
}

func ParseComparison(data []byte) (*Comparison, error) {
	var c Comparison
	if err := parse(comparisonSchema, data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func parse(schema func() (*gojsonschema.Schema, error), data []byte, v any) error {
	s, err := schema()
	if err != nil {
		return xerrors.Errorf("failed to compile metadata schema: %w", err)
	}

	if !json.Valid(data) {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Description: "metadata is not valid JSON"}}}
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Description: err.Error()}}}
	}
	if !result.Valid() {
		validationErr := &ValidationError{}
		for _, re := range result.Errors() {
			validationErr.Errors = append(validationErr.Errors, FieldError{
				Field:       re.Field(),
				Description: re.Description(),
			})
		}
		return validationErr
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Description: err.Error()}}}
	}
	return nil
}
