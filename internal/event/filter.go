package event

import (
	"fmt"
	"strings"
)

// Filter is the matching configuration of a listener. Each event kind has
// its own filter type; FilterKind ties a filter to the kind it applies to so
// the registry can reject mismatches when a listener is added.
type Filter interface {
	FilterKind() Kind
}

// Method selects how a TextFilter compares text.
type Method int

// Text filter methods.
const (
	// MethodAll matches any text.
	MethodAll Method = iota

	// MethodSubstring matches when the filter occurs anywhere in the text.
	MethodSubstring

	// MethodPrefix matches when the text starts with the filter.
	MethodPrefix

	// MethodExact matches when the text equals the filter.
	MethodExact
)

// String returns the script-facing name of the method.
func (m Method) String() string {
	switch m {
	case MethodAll:
		return "all"
	case MethodSubstring:
		return "substring"
	case MethodPrefix:
		return "prefix"
	case MethodExact:
		return "exact"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod parses a script-facing method name.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return MethodAll, nil
	case "substring", "contains":
		return MethodSubstring, nil
	case "prefix", "beginning":
		return MethodPrefix, nil
	case "exact":
		return MethodExact, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// TextFilter matches the text of a speech event.
type TextFilter struct {
	Method        Method
	Filter        string
	CaseSensitive bool
}

// NewTextFilter builds a text filter. When the filter is case insensitive
// the filter string is stored lower-cased, since Match only lower-cases the
// subject.
func NewTextFilter(method Method, filter string, caseSensitive bool) TextFilter {
	if !caseSensitive {
		filter = strings.ToLower(filter)
	}
	return TextFilter{Method: method, Filter: filter, CaseSensitive: caseSensitive}
}

// FilterKind implements Filter.
func (f TextFilter) FilterKind() Kind {
	return KindSay
}

// Match reports whether subject satisfies the filter. Unknown methods never
// match.
func (f TextFilter) Match(subject string) bool {
	if !f.CaseSensitive {
		subject = strings.ToLower(subject)
	}

	switch f.Method {
	case MethodAll:
		return true
	case MethodSubstring:
		return strings.Contains(subject, f.Filter)
	case MethodPrefix:
		return strings.HasPrefix(subject, f.Filter)
	case MethodExact:
		return subject == f.Filter
	default:
		return false
	}
}
