// Package geolocate defines the contract with the vision model that turns
// a page screenshot into a geographic guess. The model call itself is an
// external collaborator; this package owns the request/response shapes,
// the token cost accounting, and the response parsing.
package geolocate

import "context"

// Image is a screenshot handed to the resolver.
type Image struct {
	Data   []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Guess is the resolver's answer: a coordinate, a human-readable place
// description, and what the call cost.
type Guess struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Place      string  `json:"place"`
	Tokens     int64   `json:"tokens"`
	CostMicros int64   `json:"cost_micros"`
}

// Resolver produces a Guess for an image. Implementations wrap the actual
// vision-model client; the engine only ever sees this interface.
type Resolver interface {
	Resolve(ctx context.Context, img Image) (*Guess, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, img Image) (*Guess, error)

func (f ResolverFunc) Resolve(ctx context.Context, img Image) (*Guess, error) {
	return f(ctx, img)
}
