// Package security provides validation, sanitization, and limits for the methodjobs package.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
)

// Security limits and configuration
const (
	// MaxJobNameLength is the maximum length for job and group names
	MaxJobNameLength = 255

	// MaxListenerNames is the maximum number of listeners one descriptor may name
	MaxListenerNames = 64

	// MaxListenerNameLength is the maximum length for a listener name
	MaxListenerNameLength = 255

	// MaxResultSize is the maximum size in bytes of an encoded result kept in history (64KB)
	MaxResultSize = 64 << 10

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096

	// MaxHistoryLimit is the hard limit for history queries
	MaxHistoryLimit = 1000
)

// validJobName matches alphanumeric, hyphens, underscores, and dots
var validJobName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateJobName validates a descriptor name
func ValidateJobName(name string) error {
	if name == "" {
		return core.ErrInvalidJobName
	}
	if len(name) > MaxJobNameLength {
		return core.ErrJobNameTooLong
	}
	if !validJobName.MatchString(name) {
		return core.ErrInvalidJobName
	}
	return nil
}

// ValidateGroupName validates a descriptor group. It follows job name rules
// without dots, so a key "group.name" splits back at its first dot.
func ValidateGroupName(group string) error {
	if err := ValidateJobName(group); err != nil {
		return err
	}
	if strings.Contains(group, ".") {
		return core.ErrInvalidGroupName
	}
	return nil
}

// NormalizeListenerNames drops duplicates while keeping first-seen order and
// rejects empty, overlong or too many names.
func NormalizeListenerNames(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || len(n) > MaxListenerNameLength {
			return nil, core.ErrInvalidListenerName
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) > MaxListenerNames {
		return nil, core.ErrTooManyListeners
	}
	return out, nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}

// ClampHistoryLimit ensures a history query limit is within limits
func ClampHistoryLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return n
}
