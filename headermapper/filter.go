package headermapper

import (
	"strings"
)

// HeaderFilter decides whether a header name is kept while flattening
type HeaderFilter func(name string) bool

// AcceptAll keeps every header
func AcceptAll(string) bool {
	return true
}

// transportManagedHeaders are set by the transport itself and must not be
// copied from a handler's response into a gateway response.
var transportManagedHeaders = []string{
	"Connection",
	"Content-Length",
	"Keep-Alive",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// TransportManaged rejects hop-by-hop and framing headers. Names are compared
// case-insensitively.
var TransportManaged = ExcludeFold(transportManagedHeaders...)

// Exclude rejects the given names (exact match)
func Exclude(names ...string) HeaderFilter {
	blocked := make(map[string]struct{}, len(names))
	for _, name := range names {
		blocked[name] = struct{}{}
	}
	return func(name string) bool {
		_, found := blocked[name]
		return !found
	}
}

// ExcludeFold rejects the given names ignoring case
func ExcludeFold(names ...string) HeaderFilter {
	blocked := make(map[string]struct{}, len(names))
	for _, name := range names {
		blocked[strings.ToLower(name)] = struct{}{}
	}
	return func(name string) bool {
		_, found := blocked[strings.ToLower(name)]
		return !found
	}
}

// ExcludePrefix rejects names starting with any of the prefixes (exact match)
func ExcludePrefix(prefixes ...string) HeaderFilter {
	return func(name string) bool {
		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				return false
			}
		}
		return true
	}
}

// Include keeps only the given names (exact match)
func Include(names ...string) HeaderFilter {
	return Not(Exclude(names...))
}

// Not inverts a filter. A nil filter is treated as AcceptAll.
func Not(filter HeaderFilter) HeaderFilter {
	if filter == nil {
		filter = AcceptAll
	}
	return func(name string) bool {
		return !filter(name)
	}
}

// AllOf keeps a name only if every non-nil filter keeps it
func AllOf(filters ...HeaderFilter) HeaderFilter {
	active := compactFilters(filters)
	switch len(active) {
	case 0:
		return AcceptAll
	case 1:
		return active[0]
	}
	return func(name string) bool {
		for _, filter := range active {
			if !filter(name) {
				return false
			}
		}
		return true
	}
}

// AnyOf keeps a name if at least one non-nil filter keeps it. Without
// filters every name is kept.
func AnyOf(filters ...HeaderFilter) HeaderFilter {
	active := compactFilters(filters)
	if len(active) == 0 {
		return AcceptAll
	}
	return func(name string) bool {
		for _, filter := range active {
			if filter(name) {
				return true
			}
		}
		return false
	}
}

func compactFilters(filters []HeaderFilter) []HeaderFilter {
	active := make([]HeaderFilter, 0, len(filters))
	for _, filter := range filters {
		if filter != nil {
			active = append(active, filter)
		}
	}
	return active
}
