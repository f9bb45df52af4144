package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileRegexPatterns compiles the skip_url_patterns list that rejects screenshot URLs
// beyond the built-in blocklist. Blank entries are ignored; the first invalid entry fails
// the whole list with ErrConfigValidation and names its position.
func CompileRegexPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: skip_url_patterns[%d] '%s': %w", ErrConfigValidation, i, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
