package provision

import (
	"fmt"
	"strings"
	"time"
)

// MaxClientNameLen bounds client names.
const MaxClientNameLen = 64

// ValidateClientName rejects names that could escape the working
// directory or be misread by the script: only ASCII letters, digits,
// '_', '-' and '.' are allowed, and the name may not start with '.' or '-'.
func ValidateClientName(name string) error {
	switch {
	case name == "":
		return &InvalidClientNameError{Name: name, Reason: "empty"}
	case len(name) > MaxClientNameLen:
		return &InvalidClientNameError{Name: name, Reason: fmt.Sprintf("longer than %d bytes", MaxClientNameLen)}
	case name[0] == '.' || name[0] == '-':
		return &InvalidClientNameError{Name: name, Reason: "must not start with '.' or '-'"}
	}
	for _, r := range name {
		if !allowedRune(r) {
			return &InvalidClientNameError{Name: name, Reason: fmt.Sprintf("contains %q", r)}
		}
	}
	return nil
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.':
		return true
	}
	return false
}

// ClientName derives a unique client name for a chat user: the username
// (or user_<id> when the user has none) with disallowed characters
// replaced by '_', followed by _<unix seconds>.
func ClientName(username string, userID int64, now time.Time) string {
	base := username
	if base == "" {
		base = fmt.Sprintf("user_%d", userID)
	}

	var b strings.Builder
	for i, r := range base {
		if !allowedRune(r) || (i == 0 && (r == '.' || r == '-')) {
			r = '_'
		}
		b.WriteRune(r)
	}

	suffix := fmt.Sprintf("_%d", now.Unix())
	name := b.String()
	if limit := MaxClientNameLen - len(suffix); len(name) > limit {
		name = name[:limit]
	}
	return name + suffix
}
