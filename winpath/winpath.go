// Package winpath joins path fragments written with mixed separators into one
// canonical path string.
package winpath

import (
	"regexp"
	"strings"

	"github.com/cnosuke/mcp-winhost/types"
)

// DefaultSeparator is the separator emitted when none is configured
const DefaultSeparator = `\`

var (
	separatorPattern = regexp.MustCompile(`[\\/]`)
	duplicatePattern = regexp.MustCompile(`[\\/]{2,}`)
	drivePattern     = regexp.MustCompile(`^\w:`)
)

type options struct {
	separator  string
	stripDrive bool
}

// Option configures Join
type Option func(*options)

// WithSeparator sets the separator written between path elements
func WithSeparator(sep string) Option {
	return func(o *options) {
		if sep != "" {
			o.separator = sep
		}
	}
}

// WithStripDrive removes a leading drive prefix such as "c:" from the result
func WithStripDrive(strip bool) Option {
	return func(o *options) {
		o.stripDrive = strip
	}
}

// Join combines two or more path fragments. Both `\` and `/` are accepted as
// input separators and rewritten to the configured separator, and runs of
// separators are collapsed to one.
//
// Example:
//
//	Join([]string{`c:\meow`, `cats/`, `bats\`})                      // c:\meow\cats\bats\
//	Join([]string{`c:\dog`, `bark`}, WithStripDrive(true))           // \dog\bark
//	Join([]string{`c:\dog`, `bark`}, WithSeparator("/"))             // c:/dog/bark
func Join(fragments []string, opts ...Option) (string, error) {
	o := options{separator: DefaultSeparator}
	for _, opt := range opts {
		opt(&o)
	}

	if len(fragments) < 2 {
		return "", types.InvalidArgumentf("too few arguments: got %d path(s), need at least 2", len(fragments))
	}

	var b strings.Builder
	for i, fragment := range fragments {
		if i > 0 {
			b.WriteString(o.separator)
		}
		b.WriteString(separatorPattern.ReplaceAllLiteralString(fragment, o.separator))
	}

	// Collapsing runs once over the whole string is what removes the
	// doubled separators left at the seams between fragments.
	combined := duplicatePattern.ReplaceAllLiteralString(b.String(), o.separator)

	if o.stripDrive {
		if loc := drivePattern.FindStringIndex(combined); loc != nil {
			combined = combined[loc[1]:]
		}
	}

	return combined, nil
}

// JoinAny is Join for loosely typed input such as decoded JSON arrays. Every
// fragment must be a string.
func JoinAny(fragments []interface{}, opts ...Option) (string, error) {
	paths := make([]string, 0, len(fragments))
	for i, fragment := range fragments {
		s, ok := fragment.(string)
		if !ok {
			return "", types.InvalidArgumentf("non-string provided as path at position %d: %T", i, fragment)
		}
		paths = append(paths, s)
	}

	return Join(paths, opts...)
}
