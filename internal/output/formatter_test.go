package output

import (
	"os"
	"testing"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		tty      bool
		expected string
	}{
		{"json with tty", "json", true, "json"},
		{"sarif without tty", "sarif", false, "sarif"},
		{"text with tty", "text", true, "text"},
		{"pretty without tty", "pretty", false, "pretty"},
		{"empty with tty", "", true, "pretty"},
		{"empty without tty", "", false, "text"},
		{"auto with tty", "auto", true, "pretty"},
		{"auto without tty", "auto", false, "text"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveFormat(tc.value, tc.tty)
			if got != tc.expected {
				t.Errorf("ResolveFormat(%q, %v) = %q, want %q", tc.value, tc.tty, got, tc.expected)
			}
		})
	}
}

func TestNewFormatter_ValidFormats(t *testing.T) {
	for _, f := range []string{"text", "json", "sarif", "markdown", "pretty"} {
		t.Run(f, func(t *testing.T) {
			formatter, err := NewFormatter(f, false)
			if err != nil {
				t.Fatalf("NewFormatter(%q) returned error: %v", f, err)
			}
			if formatter == nil {
				t.Fatalf("NewFormatter(%q) returned nil formatter", f)
			}
		})
	}
}

func TestNewFormatter_InvalidFormat(t *testing.T) {
	for _, f := range []string{"xml", "csv", "", "auto"} {
		t.Run(f, func(t *testing.T) {
			formatter, err := NewFormatter(f, false)
			if err == nil {
				t.Fatalf("NewFormatter(%q) expected error, got nil", f)
			}
			if formatter != nil {
				t.Fatalf("NewFormatter(%q) expected nil formatter on error, got %v", f, formatter)
			}
		})
	}
}

func TestIsTerminal_File(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("expected regular file not to be a terminal")
	}
}
