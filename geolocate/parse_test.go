package geolocate

import (
	"errors"
	"testing"
)

func TestParseGuessJSON(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		lat   float64
		lng   float64
		place string
	}{
		{
			"clean JSON",
			`{"coordinates":{"lat":48.8584,"lng":2.2945},"location":"Eiffel Tower, Paris"}`,
			48.8584, 2.2945, "Eiffel Tower, Paris",
		},
		{
			"JSON wrapped in prose",
			"Here is my answer:\n```json\n{\"coordinates\":{\"lat\":51.5007,\"lng\":-0.1246},\"location\":\"Westminster, London\"}\n```\nHope that helps.",
			51.5007, -0.1246, "Westminster, London",
		},
		{
			"southern hemisphere",
			`{"coordinates":{"lat":-33.8568,"lng":151.2153},"location":"Sydney Opera House"}`,
			-33.8568, 151.2153, "Sydney Opera House",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseGuess(tt.raw)
			if err != nil {
				t.Fatalf("ParseGuess: %v", err)
			}
			if g.Lat != tt.lat || g.Lng != tt.lng {
				t.Errorf("coords: got (%v, %v), want (%v, %v)", g.Lat, g.Lng, tt.lat, tt.lng)
			}
			if g.Place != tt.place {
				t.Errorf("place: got %q, want %q", g.Place, tt.place)
			}
		})
	}
}

func TestParseGuessCoordinateFallback(t *testing.T) {
	g, err := ParseGuess("The location appears to be 40.7484, -73.9857 near the Empire State Building")
	if err != nil {
		t.Fatalf("ParseGuess: %v", err)
	}
	if g.Lat != 40.7484 || g.Lng != -73.9857 {
		t.Errorf("coords: got (%v, %v)", g.Lat, g.Lng)
	}
	if g.Place == "" {
		t.Error("expected remaining text as place description")
	}
}

func TestParseGuessNegativeLatFallback(t *testing.T) {
	g, err := ParseGuess("-33.8568, 151.2153 Sydney")
	if err != nil {
		t.Fatalf("ParseGuess: %v", err)
	}
	if g.Lat != -33.8568 || g.Lng != 151.2153 {
		t.Errorf("coords: got (%v, %v)", g.Lat, g.Lng)
	}
}

func TestParseGuessRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "I cannot determine the location.", "{not json at all"} {
		_, err := ParseGuess(raw)
		if err == nil {
			t.Errorf("ParseGuess(%q) succeeded, want error", raw)
		}
		if !errors.Is(err, ErrUnparseable) {
			t.Errorf("ParseGuess(%q) error %v, want ErrUnparseable", raw, err)
		}
	}
}
