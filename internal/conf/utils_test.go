package conf

import (
	"os"
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    time.Weekday
		wantErr bool
	}{
		{"Sunday", time.Sunday, false},
		{"monday", time.Monday, false},
		{"TUESDAY", time.Tuesday, false},
		{"wednesday", time.Wednesday, false},
		{"Thursday", time.Thursday, false},
		{"friday", time.Friday, false},
		{"Saturday", time.Saturday, false},
		{"", time.Sunday, true},
		{"Someday", time.Sunday, true},
		{"mon", time.Sunday, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseWeekday(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseWeekday(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWeekday(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseWeekday(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetBasePathCreatesDirectory(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("GRIDSCREEN_TEST_BASE", dir)
	got := GetBasePath("$GRIDSCREEN_TEST_BASE/exports")

	if got == "" {
		t.Fatal("GetBasePath returned empty path")
	}
	// The directory must exist afterwards.
	info, err := os.Stat(got)
	if err != nil {
		t.Fatalf("expected directory at %s: %v", got, err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %s to be a directory", got)
	}
}

func TestGetDefaultConfigPaths(t *testing.T) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		t.Fatalf("GetDefaultConfigPaths: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("expected at least one default config path")
	}
}
