package main

import (
	"testing"
)

func TestParseActual(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    actual
		wantErr bool
	}{
		{"Normalizes the ID", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8=142",
			actual{forecastID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", count: 142}, false},
		{"Trims spaces", " 6ba7b810-9dad-11d1-80b4-00c04fd430c8 = 0 ",
			actual{forecastID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", count: 0}, false},
		{"Missing separator", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", actual{}, true},
		{"Not a UUID", "lunch=120", actual{}, true},
		{"Negative count", "6ba7b810-9dad-11d1-80b4-00c04fd430c8=-3", actual{}, true},
		{"Count not a number", "6ba7b810-9dad-11d1-80b4-00c04fd430c8=many", actual{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseActual(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseActual(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseActual(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
