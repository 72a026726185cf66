package geolocate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when no location can be extracted from a
// model response.
var ErrUnparseable = errors.New("geolocate: could not parse location from response")

// Models are asked for JSON but drift into prose; the fallback picks up a
// bare "lat, lng" pair anywhere in the text.
var coordPattern = regexp.MustCompile(`(-?\d+\.\d+)[,\s]+(-?\d+\.\d+)`)

type rawGuess struct {
	Coordinates struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"coordinates"`
	Location string `json:"location"`
}

// ParseGuess extracts a coordinate and place description from a raw model
// response. It first looks for a JSON object anywhere in the text, then
// falls back to scanning for a bare coordinate pair.
func ParseGuess(raw string) (*Guess, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseable)
	}

	if g, ok := parseJSONBlock(raw); ok {
		return g, nil
	}

	m := coordPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, ErrUnparseable
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, ErrUnparseable
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, ErrUnparseable
	}

	place := strings.TrimSpace(strings.Replace(raw, m[0], "", 1))
	return &Guess{Lat: lat, Lng: lng, Place: place}, nil
}

// parseJSONBlock finds the outermost {...} span and decodes it.
func parseJSONBlock(raw string) (*Guess, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var rg rawGuess
	if err := json.Unmarshal([]byte(raw[start:end+1]), &rg); err != nil {
		return nil, false
	}
	if rg.Coordinates.Lat == 0 && rg.Coordinates.Lng == 0 && rg.Location == "" {
		return nil, false
	}

	return &Guess{
		Lat:   rg.Coordinates.Lat,
		Lng:   rg.Coordinates.Lng,
		Place: rg.Location,
	}, true
}
