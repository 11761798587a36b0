package headermapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderFilters(t *testing.T) {
	tests := []struct {
		name     string
		filter   HeaderFilter
		accepted []string
		rejected []string
	}{
		{
			name:     "AcceptAll",
			filter:   AcceptAll,
			accepted: []string{"a", "", "Content-Length"},
		},
		{
			name:     "Exclude",
			filter:   Exclude("b", "c"),
			accepted: []string{"a", "B", "d"},
			rejected: []string{"b", "c"},
		},
		{
			name:     "ExcludeFold",
			filter:   ExcludeFold("Set-Cookie"),
			accepted: []string{"Cookie"},
			rejected: []string{"set-cookie", "SET-COOKIE", "Set-Cookie"},
		},
		{
			name:     "ExcludePrefix",
			filter:   ExcludePrefix("X-Amzn-", "Grpc-"),
			accepted: []string{"X-Request-Id", "x-amzn-trace"},
			rejected: []string{"X-Amzn-Trace-Id", "Grpc-Status"},
		},
		{
			name:     "Include",
			filter:   Include("a"),
			accepted: []string{"a"},
			rejected: []string{"A", "b"},
		},
		{
			name:     "Not nil",
			filter:   Not(nil),
			rejected: []string{"a"},
		},
		{
			name:     "AllOf",
			filter:   AllOf(Exclude("a"), nil, Exclude("b")),
			accepted: []string{"c"},
			rejected: []string{"a", "b"},
		},
		{
			name:     "AllOf empty",
			filter:   AllOf(),
			accepted: []string{"a"},
		},
		{
			name:     "AnyOf",
			filter:   AnyOf(Include("a"), Include("b")),
			accepted: []string{"a", "b"},
			rejected: []string{"c"},
		},
		{
			name:     "AnyOf empty",
			filter:   AnyOf(nil),
			accepted: []string{"a"},
		},
		{
			name:     "TransportManaged",
			filter:   TransportManaged,
			accepted: []string{"Content-Type", "Set-Cookie", "X-Request-Id"},
			rejected: []string{"Content-Length", "content-length", "Transfer-Encoding", "Connection", "te", "Upgrade"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range tt.accepted {
				assert.True(t, tt.filter(name), "expected %q to be accepted", name)
			}
			for _, name := range tt.rejected {
				assert.False(t, tt.filter(name), "expected %q to be rejected", name)
			}
		})
	}
}

func TestResponseFilterConfig_Filter(t *testing.T) {
	tests := []struct {
		name     string
		config   *ResponseFilterConfig
		accepted []string
		rejected []string
	}{
		{
			name:     "nil config drops transport headers",
			config:   nil,
			accepted: []string{"Content-Type"},
			rejected: []string{"Content-Length"},
		},
		{
			name:     "empty config keeps everything",
			config:   &ResponseFilterConfig{},
			accepted: []string{"Content-Type", "Content-Length"},
		},
		{
			name: "combined",
			config: &ResponseFilterConfig{
				Exclude:          []string{"Server"},
				ExcludePrefixes:  []string{"X-Internal-"},
				TransportManaged: true,
			},
			accepted: []string{"Content-Type", "server"},
			rejected: []string{"Server", "X-Internal-Trace", "Transfer-Encoding"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := tt.config.Filter()
			for _, name := range tt.accepted {
				assert.True(t, filter(name), "expected %q to be accepted", name)
			}
			for _, name := range tt.rejected {
				assert.False(t, filter(name), "expected %q to be rejected", name)
			}
		})
	}
}
