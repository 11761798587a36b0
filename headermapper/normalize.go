package headermapper

import (
	"iter"
	"maps"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/grpc/metadata"
)

// ValueSeparator joins multiple header values when flattening
const ValueSeparator = ","

// FlatHeaders is an immutable name -> value snapshot, as delivered by
// gateway-style transports that allow one value per header name.
type FlatHeaders struct {
	m map[string]string
}

// ExpandedHeaders is an immutable name -> values snapshot, the shape used by
// http.Header and gRPC metadata.
type ExpandedHeaders struct {
	m map[string][]string
}

// Flatten converts a multi-valued header mapping into a flat one.
//
// Entries with an empty name, an empty value list, or a name rejected by any
// of the filters are dropped. Remaining values are joined in order with
// ValueSeparator. With no filters every name is accepted.
func Flatten(expanded map[string][]string, filters ...HeaderFilter) FlatHeaders {
	accept := AllOf(filters...)
	flat := make(map[string]string, len(expanded))
	for name, values := range expanded {
		if name == "" || !accept(name) || len(values) == 0 {
			continue
		}
		flat[name] = strings.Join(values, ValueSeparator)
	}
	return FlatHeaders{m: flat}
}

// Expand converts a flat header mapping into a multi-valued one. Each value
// becomes a single element list; values are never split on ValueSeparator.
func Expand(flat map[string]string) ExpandedHeaders {
	expanded := make(map[string][]string, len(flat))
	for name, value := range flat {
		if name == "" {
			continue
		}
		expanded[name] = []string{value}
	}
	return ExpandedHeaders{m: expanded}
}

// ExpandNullable is Expand for mappings that may carry absent values, such as
// headers decoded from JSON where a value can be null. Nil values are dropped.
func ExpandNullable(flat map[string]*string) ExpandedHeaders {
	expanded := make(map[string][]string, len(flat))
	for name, value := range flat {
		if name == "" || value == nil {
			continue
		}
		expanded[name] = []string{*value}
	}
	return ExpandedHeaders{m: expanded}
}

// Get returns the value stored under name
func (f FlatHeaders) Get(name string) (string, bool) {
	v, ok := f.m[name]
	return v, ok
}

// Len returns the number of headers
func (f FlatHeaders) Len() int {
	return len(f.m)
}

// Names returns the header names in sorted order
func (f FlatHeaders) Names() []string {
	return slices.Sorted(maps.Keys(f.m))
}

// All iterates over every header. Iteration order is unspecified.
func (f FlatHeaders) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for name, value := range f.m {
			if !yield(name, value) {
				return
			}
		}
	}
}

// Map returns a copy of the headers as a plain map
func (f FlatHeaders) Map() map[string]string {
	return maps.Clone(f.nonNil())
}

// Equal reports whether both snapshots hold the same headers
func (f FlatHeaders) Equal(other FlatHeaders) bool {
	return maps.Equal(f.m, other.m)
}

// Expand wraps every value into a single element list, see Expand.
func (f FlatHeaders) Expand() ExpandedHeaders {
	return Expand(f.m)
}

func (f FlatHeaders) nonNil() map[string]string {
	if f.m == nil {
		return map[string]string{}
	}
	return f.m
}

// Get returns a copy of the values stored under name
func (e ExpandedHeaders) Get(name string) ([]string, bool) {
	v, ok := e.m[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// Len returns the number of headers
func (e ExpandedHeaders) Len() int {
	return len(e.m)
}

// Names returns the header names in sorted order
func (e ExpandedHeaders) Names() []string {
	return slices.Sorted(maps.Keys(e.m))
}

// All iterates over every header, yielding a copy of each value list.
func (e ExpandedHeaders) All() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for name, values := range e.m {
			if !yield(name, slices.Clone(values)) {
				return
			}
		}
	}
}

// Map returns a deep copy of the headers as a plain map
func (e ExpandedHeaders) Map() map[string][]string {
	out := make(map[string][]string, len(e.m))
	for name, values := range e.m {
		out[name] = slices.Clone(values)
	}
	return out
}

// Header returns a copy as http.Header. Names are kept as-is, so lookups
// through Header.Get only match canonical names.
func (e ExpandedHeaders) Header() http.Header {
	return http.Header(e.Map())
}

// MD returns a copy as gRPC metadata. Names are kept as-is; gRPC expects
// lowercase keys.
func (e ExpandedHeaders) MD() metadata.MD {
	return metadata.MD(e.Map())
}

// Equal reports whether both snapshots hold the same headers with values in
// the same order.
func (e ExpandedHeaders) Equal(other ExpandedHeaders) bool {
	return maps.EqualFunc(e.m, other.m, slices.Equal[[]string])
}

// Flatten joins every value list, see Flatten.
func (e ExpandedHeaders) Flatten(filters ...HeaderFilter) FlatHeaders {
	return Flatten(e.m, filters...)
}
