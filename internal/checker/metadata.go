package checker

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed metadata_schema.json
var metadataSchemaJSON []byte

var (
	metadataSchemaOnce sync.Once
	metadataSchema     *jsonschema.Resolved
	metadataSchemaErr  error
)

// Metadata is the content of a mod's metadata file. File lists are
// relative to the mod directory.
type Metadata struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	CAD         []string `yaml:"cad"`
	STL         []string `yaml:"stl"`
	Images      []string `yaml:"images"`
}

// MetadataError describes a metadata file that is not valid YAML or does
// not match the metadata schema.
type MetadataError struct {
	Path   string
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("invalid metadata %s: %s", e.Path, e.Reason)
}

func resolvedMetadataSchema() (*jsonschema.Resolved, error) {
	metadataSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal(metadataSchemaJSON, &schema); err != nil {
			metadataSchemaErr = fmt.Errorf("parsing metadata schema: %w", err)
			return
		}
		metadataSchema, metadataSchemaErr = schema.Resolve(nil)
	})
	return metadataSchema, metadataSchemaErr
}

// LoadMetadata reads and validates a metadata file. Content problems are
// returned as *MetadataError, I/O failures as is.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return ParseMetadata(path, data)
}

// ParseMetadata decodes metadata and validates it against the schema.
// path is only used in errors.
func ParseMetadata(path string, data []byte) (*Metadata, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &MetadataError{Path: path, Reason: err.Error()}
	}

	// the schema validator works on JSON values
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, &MetadataError{Path: path, Reason: fmt.Sprintf("unsupported YAML content: %v", err)}
	}
	var instance interface{}
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return nil, &MetadataError{Path: path, Reason: err.Error()}
	}

	schema, err := resolvedMetadataSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		return nil, &MetadataError{Path: path, Reason: err.Error()}
	}

	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, &MetadataError{Path: path, Reason: err.Error()}
	}
	return &md, nil
}
