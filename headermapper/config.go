package headermapper

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// MappingDirection defines the direction of header mapping
type MappingDirection int

const (
	// Incoming maps HTTP headers to gRPC metadata (HTTP -> gRPC)
	Incoming MappingDirection = iota
	// Outgoing maps gRPC metadata to HTTP headers (gRPC -> HTTP)
	Outgoing
	// Bidirectional maps in both directions
	Bidirectional
)

// HeaderMapping defines how to map between HTTP headers and gRPC metadata
type HeaderMapping struct {
	// HTTPHeader is the HTTP header name
	HTTPHeader string `json:"http_header" yaml:"http_header"`
	// GRPCMetadata is the gRPC metadata key (case-sensitive)
	GRPCMetadata string `json:"grpc_metadata" yaml:"grpc_metadata"`
	// Direction specifies mapping direction
	Direction MappingDirection `json:"direction" yaml:"direction"`
	// Transform is applied to the flattened value
	Transform TransformFunc `json:"-" yaml:"-"`
	// Required indicates if this header is required
	Required bool `json:"required" yaml:"required"`
	// DefaultValue is used when header is missing
	DefaultValue string `json:"default_value" yaml:"default_value"`
}

// ResponseFilterConfig selects which response headers survive flattening
// into a gateway response.
type ResponseFilterConfig struct {
	// Exclude lists header names to drop (exact match)
	Exclude []string `json:"exclude" yaml:"exclude"`
	// ExcludePrefixes drops names starting with any prefix (exact match)
	ExcludePrefixes []string `json:"exclude_prefixes" yaml:"exclude_prefixes"`
	// TransportManaged drops hop-by-hop and framing headers
	TransportManaged bool `json:"transport_managed" yaml:"transport_managed"`
}

// Config holds the configuration for header mapping
type Config struct {
	Mappings []HeaderMapping `json:"mappings" yaml:"mappings"`
	// SkipPaths defines paths (or gRPC full methods) to skip
	SkipPaths []string `json:"skip_paths" yaml:"skip_paths"`
	// CaseSensitive determines if HTTP header matching is case-sensitive
	CaseSensitive bool `json:"case_sensitive" yaml:"case_sensitive"`
	// OverwriteExisting determines if existing metadata/headers are overwritten
	OverwriteExisting bool `json:"overwrite_existing" yaml:"overwrite_existing"`
	// Debug enables debug logging
	Debug bool `json:"debug" yaml:"debug"`
	// ResponseFilter configures gateway response flattening
	ResponseFilter *ResponseFilterConfig `json:"response_filter,omitempty" yaml:"response_filter,omitempty"`
}

// Filter builds the HeaderFilter described by the configuration. A nil
// configuration keeps transport-managed headers out.
func (c *ResponseFilterConfig) Filter() HeaderFilter {
	if c == nil {
		return TransportManaged
	}

	var filters []HeaderFilter
	if len(c.Exclude) > 0 {
		filters = append(filters, Exclude(c.Exclude...))
	}
	if len(c.ExcludePrefixes) > 0 {
		filters = append(filters, ExcludePrefix(c.ExcludePrefixes...))
	}
	if c.TransportManaged {
		filters = append(filters, TransportManaged)
	}
	return AllOf(filters...)
}

// LoadConfigFromFile loads configuration from a file (JSON or YAML)
func LoadConfigFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadConfig(file)
}

// LoadConfig reads a JSON or YAML configuration
func LoadConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		if jsonErr := json.Unmarshal(data, &config); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config as YAML or JSON: %w", err)
		}
	}

	return &config, nil
}

// SaveConfigToFile saves configuration to a file
func SaveConfigToFile(config *Config, filename string, format string) error {
	var data []byte
	var err error

	switch format {
	case "yaml", "yml":
		data, err = yaml.Marshal(config)
	case "json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}

// ConfigBuilder helps build configurations programmatically
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: &Config{
			Mappings: make([]HeaderMapping, 0),
		},
	}
}

func (cb *ConfigBuilder) WithMappings(mappings []HeaderMapping) *ConfigBuilder {
	cb.config.Mappings = mappings
	return cb
}

func (cb *ConfigBuilder) AddMapping(mapping HeaderMapping) *ConfigBuilder {
	cb.config.Mappings = append(cb.config.Mappings, mapping)
	return cb
}

func (cb *ConfigBuilder) WithSkipPaths(paths []string) *ConfigBuilder {
	cb.config.SkipPaths = paths
	return cb
}

func (cb *ConfigBuilder) WithCaseSensitive(caseSensitive bool) *ConfigBuilder {
	cb.config.CaseSensitive = caseSensitive
	return cb
}

func (cb *ConfigBuilder) WithOverwriteExisting(overwrite bool) *ConfigBuilder {
	cb.config.OverwriteExisting = overwrite
	return cb
}

func (cb *ConfigBuilder) WithDebug(debug bool) *ConfigBuilder {
	cb.config.Debug = debug
	return cb
}

// WithResponseFilter sets the gateway response header filter
func (cb *ConfigBuilder) WithResponseFilter(filter *ResponseFilterConfig) *ConfigBuilder {
	cb.config.ResponseFilter = filter
	return cb
}

// Build returns the built configuration
func (cb *ConfigBuilder) Build() *Config {
	return cb.config
}

// ValidateConfig checks mappings for empty names and duplicates, and the
// response filter for empty entries.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration is nil")
	}

	seen := make(map[string]HeaderMapping)
	for i, mapping := range config.Mappings {
		if mapping.HTTPHeader == "" {
			return fmt.Errorf("mapping %d: HTTPHeader cannot be empty", i)
		}
		if mapping.GRPCMetadata == "" {
			return fmt.Errorf("mapping %d: GRPCMetadata cannot be empty", i)
		}
		if mapping.Direction < Incoming || mapping.Direction > Bidirectional {
			return fmt.Errorf("mapping %d: unknown direction %d", i, mapping.Direction)
		}

		key := fmt.Sprintf("%s->%s", mapping.HTTPHeader, mapping.GRPCMetadata)
		if existing, exists := seen[key]; exists {
			return fmt.Errorf("duplicate mapping found: %s (directions: %d, %d)",
				key, existing.Direction, mapping.Direction)
		}
		seen[key] = mapping
	}

	if rf := config.ResponseFilter; rf != nil {
		for i, name := range rf.Exclude {
			if name == "" {
				return fmt.Errorf("response_filter.exclude %d: name cannot be empty", i)
			}
		}
		for i, prefix := range rf.ExcludePrefixes {
			if prefix == "" {
				return fmt.Errorf("response_filter.exclude_prefixes %d: prefix cannot be empty", i)
			}
		}
	}

	return nil
}
