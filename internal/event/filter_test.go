package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFilterMatch(t *testing.T) {
	tests := []struct {
		name    string
		filter  TextFilter
		subject string
		want    bool
	}{
		{"all matches empty", NewTextFilter(MethodAll, "", false), "", true},
		{"all ignores filter", NewTextFilter(MethodAll, "zzz", true), "hello", true},
		{"substring", NewTextFilter(MethodSubstring, "ell", false), "hello", true},
		{"substring miss", NewTextFilter(MethodSubstring, "xyz", false), "hello", false},
		{"substring case insensitive", NewTextFilter(MethodSubstring, "HELLO", false), "well Hello there", true},
		{"substring case sensitive", NewTextFilter(MethodSubstring, "Hello", true), "hello", false},
		{"prefix", NewTextFilter(MethodPrefix, "he", false), "hello", true},
		{"prefix not anywhere", NewTextFilter(MethodPrefix, "hello", false), "ahello", false},
		{"exact", NewTextFilter(MethodExact, "hello", false), "HELLO", true},
		{"exact case sensitive", NewTextFilter(MethodExact, "hello", true), "Hello", false},
		{"exact case sensitive equal", NewTextFilter(MethodExact, "Hello", true), "Hello", true},
		{"exact longer subject", NewTextFilter(MethodExact, "hello", false), "hello!", false},
		{"unknown method fails closed", TextFilter{Method: Method(99)}, "hello", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.subject))
		})
	}
}

func TestNewTextFilterNormalisesCase(t *testing.T) {
	assert.Equal(t, "hello", NewTextFilter(MethodExact, "HeLLo", false).Filter)
	assert.Equal(t, "HeLLo", NewTextFilter(MethodExact, "HeLLo", true).Filter)
}

func TestTextFilterKind(t *testing.T) {
	assert.Equal(t, KindSay, TextFilter{}.FilterKind())
}

func TestParseMethod(t *testing.T) {
	tests := map[string]Method{
		"":          MethodAll,
		"all":       MethodAll,
		"substring": MethodSubstring,
		"contains":  MethodSubstring,
		"Prefix":    MethodPrefix,
		"beginning": MethodPrefix,
		"EXACT":     MethodExact,
	}
	for in, want := range tests {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMethod("regex")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestMethodString(t *testing.T) {
	for _, m := range []Method{MethodAll, MethodSubstring, MethodPrefix, MethodExact} {
		parsed, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	assert.Equal(t, "method(7)", Method(7).String())
}
