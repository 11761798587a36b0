// Package headermapper maps headers between gateway-style flat mappings,
// HTTP headers and gRPC metadata.
package headermapper

import (
	"context"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
)

// HeaderMapper provides header mapping functionality
type HeaderMapper struct {
	config    *Config
	skipPaths map[string]bool
	logger    Logger
	metrics   *Metrics

	// incomingHTTP accepts request header names named by incoming mappings
	incomingHTTP HeaderFilter
	// incomingMD and outgoingMD accept lowercased metadata keys
	incomingMD HeaderFilter
	outgoingMD HeaderFilter
}

// NewHeaderMapper creates a new HeaderMapper with the given configuration
func NewHeaderMapper(config *Config) *HeaderMapper {
	if config == nil {
		config = &Config{}
	}

	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	var httpNames, incomingKeys, outgoingKeys []string
	for _, mapping := range config.Mappings {
		key := metadataKey(mapping)
		if mapping.Direction != Outgoing {
			httpNames = append(httpNames, mapping.HTTPHeader, http.CanonicalHeaderKey(mapping.HTTPHeader))
			incomingKeys = append(incomingKeys, key)
		}
		if mapping.Direction != Incoming {
			outgoingKeys = append(outgoingKeys, key)
		}
	}

	incomingHTTP := Include(httpNames...)
	if !config.CaseSensitive {
		incomingHTTP = Not(ExcludeFold(httpNames...))
	}

	return &HeaderMapper{
		config:       config,
		skipPaths:    skipPaths,
		logger:       NoOpLogger{},
		metrics:      NewMetrics(),
		incomingHTTP: incomingHTTP,
		incomingMD:   Include(incomingKeys...),
		outgoingMD:   Include(outgoingKeys...),
	}
}

// SetLogger sets a custom logger
func (hm *HeaderMapper) SetLogger(logger Logger) {
	if logger == nil {
		logger = NoOpLogger{}
	}
	hm.logger = logger
}

// SetMetrics replaces the metrics instance, e.g. to share one across mappers
func (hm *HeaderMapper) SetMetrics(metrics *Metrics) {
	hm.metrics = metrics
}

// Metrics returns the metrics instance used by the mapper
func (hm *HeaderMapper) Metrics() *Metrics {
	return hm.metrics
}

// ResponseFilter returns the filter configured for gateway responses
func (hm *HeaderMapper) ResponseFilter() HeaderFilter {
	return hm.config.ResponseFilter.Filter()
}

// MetadataAnnotator creates a metadata annotator for incoming requests.
//
// Request headers named by incoming mappings are flattened (multiple values
// joined with ValueSeparator), defaulted, transformed and expanded into
// metadata under the mapped keys.
func (hm *HeaderMapper) MetadataAnnotator() func(context.Context, *http.Request) metadata.MD {
	return func(ctx context.Context, req *http.Request) metadata.MD {
		hm.metrics.RecordRequest(DirectionIncoming)
		if hm.skipPaths[req.URL.Path] {
			return metadata.MD{}
		}

		flat := Flatten(req.Header, hm.incomingHTTP)
		lookup := hm.headerLookup(flat)

		mapped := make(map[string]string)
		for _, mapping := range hm.config.Mappings {
			if mapping.Direction == Outgoing {
				continue
			}

			key := metadataKey(mapping)
			if _, exists := mapped[key]; exists && !hm.config.OverwriteExisting {
				continue
			}

			value, ok := hm.resolveValue(mapping, lookup(mapping.HTTPHeader), mapping.HTTPHeader)
			if !ok {
				continue
			}
			mapped[key] = value
		}

		md := Expand(mapped).MD()
		hm.metrics.RecordHeaders(DirectionIncoming, len(mapped), len(req.Header)-flat.Len())

		if hm.config.Debug {
			hm.logger.Debug("mapped incoming headers", "metadata", md)
		}

		return md
	}
}

// ResponseModifier creates a response modifier for outgoing responses.
// All values of a metadata key are joined into one header value.
func (hm *HeaderMapper) ResponseModifier() func(context.Context, http.ResponseWriter, proto.Message) error {
	return func(ctx context.Context, w http.ResponseWriter, _ proto.Message) error {
		md, ok := runtime.ServerMetadataFromContext(ctx)
		if !ok {
			return nil
		}
		hm.metrics.RecordRequest(DirectionOutgoing)

		flat := Flatten(md.HeaderMD, hm.outgoingMD)
		written := 0
		for _, mapping := range hm.config.Mappings {
			if mapping.Direction == Incoming {
				continue
			}

			current, _ := flat.Get(metadataKey(mapping))
			value, ok := hm.resolveValue(mapping, current, mapping.GRPCMetadata)
			if !ok {
				continue
			}

			if !hm.config.OverwriteExisting && w.Header().Get(mapping.HTTPHeader) != "" {
				continue
			}
			w.Header().Set(mapping.HTTPHeader, value)
			written++
		}

		hm.metrics.RecordHeaders(DirectionOutgoing, written, len(md.HeaderMD)-flat.Len())

		if hm.config.Debug {
			hm.logger.Debug("mapped outgoing headers to response", "count", written)
		}

		return nil
	}
}

// HeaderMatcher creates a header matcher for grpc-gateway
func (hm *HeaderMapper) HeaderMatcher() func(string) (string, bool) {
	headerMap := make(map[string]string)
	for _, mapping := range hm.config.Mappings {
		if mapping.Direction == Outgoing {
			continue
		}
		key := mapping.HTTPHeader
		if !hm.config.CaseSensitive {
			key = strings.ToLower(key)
		}
		headerMap[key] = mapping.GRPCMetadata
	}

	return func(key string) (string, bool) {
		searchKey := key
		if !hm.config.CaseSensitive {
			searchKey = strings.ToLower(key)
		}

		if grpcKey, exists := headerMap[searchKey]; exists {
			return grpcKey, true
		}

		defaultKey, defaultExists := runtime.DefaultHeaderMatcher(key)
		if !defaultExists || defaultKey == "" {
			defaultKey = "grpc-metadata-" + strings.ToLower(strings.ReplaceAll(key, "_", "-"))
		}
		return defaultKey, true
	}
}

// gatewayHeaderMatcher leaves headers named by incoming mappings to the
// metadata annotator and applies grpc-gateway's default matching to the rest.
func (hm *HeaderMapper) gatewayHeaderMatcher() func(string) (string, bool) {
	return func(key string) (string, bool) {
		if hm.incomingHTTP(key) {
			return "", false
		}
		return runtime.DefaultHeaderMatcher(key)
	}
}

// UnaryServerInterceptor creates a gRPC unary server interceptor
func (hm *HeaderMapper) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if hm.skipPaths[info.FullMethod] {
			return handler(ctx, req)
		}
		return handler(hm.processIncomingMetadata(ctx), req)
	}
}

// StreamServerInterceptor creates a gRPC stream server interceptor
func (hm *HeaderMapper) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if hm.skipPaths[info.FullMethod] {
			return handler(srv, ss)
		}

		wrappedStream := &wrappedServerStream{
			ServerStream: ss,
			ctx:          hm.processIncomingMetadata(ss.Context()),
		}
		return handler(srv, wrappedStream)
	}
}

// processIncomingMetadata gives direct gRPC callers the same view of mapped
// keys as gateway callers: one joined value per key, defaults filled in.
// Transforms are not applied here since the gateway already applied them.
func (hm *HeaderMapper) processIncomingMetadata(ctx context.Context) context.Context {
	md, _ := metadata.FromIncomingContext(ctx)

	flat := Flatten(md, hm.incomingMD)
	mapped := flat.Map()
	for _, mapping := range hm.config.Mappings {
		if mapping.Direction == Outgoing {
			continue
		}
		key := metadataKey(mapping)
		if mapped[key] != "" {
			continue
		}
		if mapping.DefaultValue != "" {
			mapped[key] = mapping.DefaultValue
			continue
		}
		if mapping.Required {
			hm.logger.Warn("required metadata missing", "key", key)
			hm.metrics.RecordFailure()
		}
	}

	out := md.Copy()
	for key, values := range Expand(mapped).All() {
		out[key] = values
	}
	return metadata.NewIncomingContext(ctx, out)
}

// resolveValue applies default, required and transform rules to a looked up
// value. The boolean is false when nothing should be written.
func (hm *HeaderMapper) resolveValue(mapping HeaderMapping, value, name string) (string, bool) {
	if value == "" {
		value = mapping.DefaultValue
	}
	if value == "" {
		if mapping.Required {
			hm.logger.Warn("required header missing", "header", name)
			hm.metrics.RecordFailure()
		}
		return "", false
	}

	if mapping.Transform != nil {
		value = mapping.Transform(value)
	}
	return value, true
}

// headerLookup resolves a mapping's HTTP header name against flattened
// request headers: exact name first, then canonical form, then a
// case-insensitive match unless the mapper is case-sensitive.
func (hm *HeaderMapper) headerLookup(flat FlatHeaders) func(string) string {
	var folded map[string]string
	if !hm.config.CaseSensitive {
		folded = make(map[string]string, flat.Len())
		for name, value := range flat.All() {
			folded[strings.ToLower(name)] = value
		}
	}

	return func(name string) string {
		if value, ok := flat.Get(name); ok {
			return value
		}
		if value, ok := flat.Get(http.CanonicalHeaderKey(name)); ok {
			return value
		}
		return folded[strings.ToLower(name)]
	}
}

func metadataKey(mapping HeaderMapping) string {
	return strings.ToLower(mapping.GRPCMetadata)
}

// wrappedServerStream wraps a grpc.ServerStream to provide custom context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// CreateGatewayMux creates a new gRPC gateway ServeMux with header mapping.
// Mapped request headers reach metadata only through MetadataAnnotator, so
// they are forwarded once and with transforms applied.
func CreateGatewayMux(mapper *HeaderMapper, opts ...runtime.ServeMuxOption) *runtime.ServeMux {
	allOpts := []runtime.ServeMuxOption{
		runtime.WithIncomingHeaderMatcher(mapper.gatewayHeaderMatcher()),
		runtime.WithMetadata(mapper.MetadataAnnotator()),
		runtime.WithForwardResponseOption(mapper.ResponseModifier()),
	}
	allOpts = append(allOpts, opts...)

	return runtime.NewServeMux(allOpts...)
}

// Validate validates the header mapper configuration
func (hm *HeaderMapper) Validate() error {
	return ValidateConfig(hm.config)
}

// GetStats returns statistics about the header mapper
func (hm *HeaderMapper) GetStats() *Stats {
	return hm.metrics.Snapshot()
}
