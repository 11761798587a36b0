package headermapper

// Builder provides a fluent API for creating a HeaderMapper
type Builder struct {
	config *Config
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		config: &Config{
			Mappings: make([]HeaderMapping, 0),
		},
	}
}

// AddMapping adds a header mapping
func (b *Builder) AddMapping(httpHeader, grpcMetadata string, direction MappingDirection) *Builder {
	b.config.Mappings = append(b.config.Mappings, HeaderMapping{
		HTTPHeader:   httpHeader,
		GRPCMetadata: grpcMetadata,
		Direction:    direction,
	})
	return b
}

// AddMappings appends complete mappings, such as CommonMappings()
func (b *Builder) AddMappings(mappings ...HeaderMapping) *Builder {
	b.config.Mappings = append(b.config.Mappings, mappings...)
	return b
}

// AddIncomingMapping adds an incoming header mapping (HTTP -> gRPC)
func (b *Builder) AddIncomingMapping(httpHeader, grpcMetadata string) *Builder {
	return b.AddMapping(httpHeader, grpcMetadata, Incoming)
}

// AddOutgoingMapping adds an outgoing header mapping (gRPC -> HTTP)
func (b *Builder) AddOutgoingMapping(grpcMetadata, httpHeader string) *Builder {
	return b.AddMapping(httpHeader, grpcMetadata, Outgoing)
}

// AddBidirectionalMapping adds a bidirectional header mapping
func (b *Builder) AddBidirectionalMapping(httpHeader, grpcMetadata string) *Builder {
	return b.AddMapping(httpHeader, grpcMetadata, Bidirectional)
}

// The With* methods modify the last added mapping and are no-ops before
// the first one.

func (b *Builder) WithTransform(transform TransformFunc) *Builder {
	if last := b.last(); last != nil {
		last.Transform = transform
	}
	return b
}

func (b *Builder) WithRequired(required bool) *Builder {
	if last := b.last(); last != nil {
		last.Required = required
	}
	return b
}

func (b *Builder) WithDefault(defaultValue string) *Builder {
	if last := b.last(); last != nil {
		last.DefaultValue = defaultValue
	}
	return b
}

func (b *Builder) last() *HeaderMapping {
	if len(b.config.Mappings) == 0 {
		return nil
	}
	return &b.config.Mappings[len(b.config.Mappings)-1]
}

// SkipPaths sets paths to skip header mapping
func (b *Builder) SkipPaths(paths ...string) *Builder {
	b.config.SkipPaths = paths
	return b
}

// CaseSensitive sets case sensitivity for header matching
func (b *Builder) CaseSensitive(caseSensitive bool) *Builder {
	b.config.CaseSensitive = caseSensitive
	return b
}

// OverwriteExisting sets whether to overwrite existing headers/metadata
func (b *Builder) OverwriteExisting(overwrite bool) *Builder {
	b.config.OverwriteExisting = overwrite
	return b
}

// Debug enables debug logging
func (b *Builder) Debug(debug bool) *Builder {
	b.config.Debug = debug
	return b
}

// ResponseFilter sets the gateway response header filter configuration
func (b *Builder) ResponseFilter(filter *ResponseFilterConfig) *Builder {
	b.config.ResponseFilter = filter
	return b
}

// Build creates the HeaderMapper
func (b *Builder) Build() *HeaderMapper {
	return NewHeaderMapper(b.config)
}

// CommonMappings returns commonly used header mappings
func CommonMappings() []HeaderMapping {
	return []HeaderMapping{
		{HTTPHeader: "User-Agent", GRPCMetadata: "user-agent", Direction: Incoming},
		{HTTPHeader: "Authorization", GRPCMetadata: "authorization", Direction: Incoming},
		{HTTPHeader: "Content-Type", GRPCMetadata: "content-type", Direction: Bidirectional},
		{HTTPHeader: "Accept", GRPCMetadata: "accept", Direction: Incoming},
		{HTTPHeader: "X-Request-ID", GRPCMetadata: "x-request-id", Direction: Bidirectional},
		{HTTPHeader: "X-Correlation-ID", GRPCMetadata: "x-correlation-id", Direction: Bidirectional},
	}
}

// AuthMappings returns authentication-related header mappings
func AuthMappings() []HeaderMapping {
	return []HeaderMapping{
		{HTTPHeader: "Authorization", GRPCMetadata: "authorization", Direction: Incoming, Required: true},
		{HTTPHeader: "X-API-Key", GRPCMetadata: "x-api-key", Direction: Incoming},
		{HTTPHeader: "X-User-ID", GRPCMetadata: "x-user-id", Direction: Bidirectional},
	}
}

// TracingMappings returns tracing-related header mappings
func TracingMappings() []HeaderMapping {
	return []HeaderMapping{
		{HTTPHeader: "X-Trace-ID", GRPCMetadata: "x-trace-id", Direction: Bidirectional},
		{HTTPHeader: "X-Span-ID", GRPCMetadata: "x-span-id", Direction: Bidirectional},
		{HTTPHeader: "X-Request-ID", GRPCMetadata: "x-request-id", Direction: Bidirectional},
		{HTTPHeader: "X-Correlation-ID", GRPCMetadata: "x-correlation-id", Direction: Bidirectional},
	}
}
