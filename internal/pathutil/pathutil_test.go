package pathutil

import "testing"

func TestRelativePath(t *testing.T) {
	tests := []struct {
		name     string
		full     string
		base     string
		expected string
	}{
		{"direct child", "/var/spool/a.txt", "/var/spool", "a.txt"},
		{"nested child", "/var/spool/sub/a.txt", "/var/spool", "sub/a.txt"},
		{"base itself", "/var/spool", "/var/spool", "."},
		{"outside base", "/etc/passwd", "/var/spool", "/etc/passwd"},
		{"empty base", "/var/spool/a.txt", "", "/var/spool/a.txt"},
		{"sibling with shared prefix", "/var/spool2/a.txt", "/var/spool", "/var/spool2/a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativePath(tt.full, tt.base); got != tt.expected {
				t.Errorf("RelativePath(%q, %q) = %q, expected %q", tt.full, tt.base, got, tt.expected)
			}
		})
	}
}
