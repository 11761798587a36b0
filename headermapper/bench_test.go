package headermapper

import (
	"context"
	"net/http/httptest"
	"testing"
)

func benchmarkHeaders() map[string][]string {
	return map[string][]string{
		"Accept":          {"application/json"},
		"Accept-Encoding": {"gzip", "br"},
		"Authorization":   {"Bearer token123"},
		"Content-Type":    {"application/json"},
		"Set-Cookie":      {"a=1", "b=2", "c=3"},
		"X-Request-Id":    {"req-123"},
		"Content-Length":  {"42"},
	}
}

func BenchmarkFlatten(b *testing.B) {
	headers := benchmarkHeaders()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = Flatten(headers, TransportManaged)
	}
}

func BenchmarkExpand(b *testing.B) {
	flat := Flatten(benchmarkHeaders()).Map()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = Expand(flat)
	}
}

func BenchmarkMetadataAnnotator(b *testing.B) {
	mapper := NewBuilder().
		AddIncomingMapping("X-User-ID", "user-id").
		AddIncomingMapping("Authorization", "auth-token").
		AddIncomingMapping("X-Request-ID", "request-id").
		AddIncomingMapping("Content-Type", "content-type").
		AddIncomingMapping("Accept", "accept").
		Build()

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("X-User-ID", "12345")
	req.Header.Set("Authorization", "Bearer token123")
	req.Header.Set("X-Request-ID", "req-123")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	annotator := mapper.MetadataAnnotator()
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = annotator(ctx, req)
	}
}

func BenchmarkHeaderMatcher(b *testing.B) {
	mapper := NewBuilder().
		AddMappings(CommonMappings()...).
		CaseSensitive(false).
		Build()

	matcher := mapper.HeaderMatcher()
	headers := []string{
		"X-User-ID",
		"authorization",
		"x-request-id",
		"Content-Type",
		"unknown-header",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		for _, header := range headers {
			_, _ = matcher(header)
		}
	}
}
