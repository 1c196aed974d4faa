package canonical

import (
	"testing"
	"time"
)

func TestParseVendorTime(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	tests := []struct {
		name string
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"rfc3339", "2024-01-10T10:00:00Z", nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)},
		{"naive datetime", "2024-01-10T10:00:00", nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)},
		{"space separator", "2024-01-10 10:00:00", nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)},
		{"minutes only", "2024-01-10T10:00", nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)},
		{"pure date", "2024-01-10", nil, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"naive in location", "2024-01-10 10:00:00", saoPaulo, time.Date(2024, 1, 10, 10, 0, 0, 0, saoPaulo)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVendorTime(tt.in, tt.loc)
			if err != nil {
				t.Fatalf("ParseVendorTime(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseVendorTime(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseVendorTimeRejects(t *testing.T) {
	for _, in := range []string{"", "  ", "10/01/2024", "not-a-date"} {
		if _, err := ParseVendorTime(in, nil); err == nil {
			t.Errorf("ParseVendorTime(%q) accepted, want error", in)
		}
	}
}

func TestCombineDateTime(t *testing.T) {
	got, err := CombineDateTime("2024-01-10", "10:30", nil)
	if err != nil {
		t.Fatalf("CombineDateTime: %v", err)
	}
	want := time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	got, err = CombineDateTime("2024-01-10", "10:30:15", nil)
	if err != nil {
		t.Fatalf("CombineDateTime with seconds: %v", err)
	}
	if got.Second() != 15 {
		t.Fatalf("seconds lost: %s", got)
	}

	// Missing clock falls back to date-only parsing.
	got, err = CombineDateTime("2024-01-10", "", nil)
	if err != nil {
		t.Fatalf("CombineDateTime without clock: %v", err)
	}
	if got.Hour() != 0 {
		t.Fatalf("expected midnight, got %s", got)
	}
}
