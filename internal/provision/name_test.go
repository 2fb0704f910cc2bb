package provision

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateClientName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"alice_1000", true},
		{"Bob-2.0", true},
		{strings.Repeat("a", MaxClientNameLen), true},
		{"", false},
		{strings.Repeat("a", MaxClientNameLen+1), false},
		{".hidden", false},
		{"-flag", false},
		{"../../etc/passwd", false},
		{"a/b", false},
		{"name with space", false},
		{"semi;colon", false},
		{"$(reboot)", false},
		{"имя", false},
	}
	for _, tt := range tests {
		err := ValidateClientName(tt.name)
		if tt.valid && err != nil {
			t.Errorf("ValidateClientName(%q) = %v, want nil", tt.name, err)
		}
		if !tt.valid {
			var inv *InvalidClientNameError
			if !errors.As(err, &inv) {
				t.Errorf("ValidateClientName(%q) = %v, want *InvalidClientNameError", tt.name, err)
			}
		}
	}
}

func TestClientName(t *testing.T) {
	now := time.Unix(1000, 0)
	tests := []struct {
		username string
		userID   int64
		want     string
	}{
		{"alice", 1, "alice_1000"},
		{"", 42, "user_42_1000"},
		{"-dash", 1, "_dash_1000"},
		{"ünï", 1, "_n__1000"},
	}
	for _, tt := range tests {
		got := ClientName(tt.username, tt.userID, now)
		if got != tt.want {
			t.Errorf("ClientName(%q, %d) = %q, want %q", tt.username, tt.userID, got, tt.want)
		}
		if err := ValidateClientName(got); err != nil {
			t.Errorf("ClientName(%q) produced invalid name: %v", tt.username, err)
		}
	}
}

func TestClientName_Truncates(t *testing.T) {
	got := ClientName(strings.Repeat("x", 100), 1, time.Unix(1700000000, 0))
	if len(got) != MaxClientNameLen {
		t.Errorf("len = %d, want %d", len(got), MaxClientNameLen)
	}
	if !strings.HasSuffix(got, "_1700000000") {
		t.Errorf("ClientName = %q, want unix suffix kept", got)
	}
}
