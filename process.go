package quota

import (
	"context"
	"fmt"

	"github.com/xraph/quota/gate"
	"github.com/xraph/quota/geolocate"
	"github.com/xraph/quota/ledger"
	"github.com/xraph/quota/schedule"
)

// Result is the outcome of a successful billed action: the geographic
// guess plus a post-action usage snapshot for the client to render.
type Result struct {
	Guess *geolocate.Guess `json:"guess"`
	Usage gate.Decision    `json:"usage"`
}

// Process runs the full billed-action flow: gate check (with lazy reset),
// vision resolve, then the atomic usage record. Denials surface as
// ErrQuotaExceeded carrying the user-facing message; the resolver is
// only ever invoked after the gate allows.
func (e *Engine) Process(ctx context.Context, key string, img geolocate.Image) (*Result, error) {
	if key == "" {
		return nil, ValidationError{Field: "key", Message: "identity key is required"}
	}
	if len(img.Data) == 0 {
		return nil, ValidationError{Field: "image", Message: "image data is required"}
	}

	now := schedule.Normalize(e.clock())

	d, err := e.check(ctx, key, now)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, d.Message)
	}

	if e.resolver == nil {
		return nil, ErrNoResolver
	}

	guess, err := e.resolver.Resolve(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}

	ev := ledger.Event{
		At:         now,
		Tokens:     guess.Tokens,
		CostMicros: guess.CostMicros,
		Summary:    guess.Place,
		Coords:     &ledger.Point{Lat: guess.Lat, Lng: guess.Lng},
	}
	if err := e.Record(ctx, key, ev); err != nil {
		return nil, err
	}

	usage := *d
	usage.Current++

	e.logger.Debug("billed action processed",
		"key", key,
		"tokens", guess.Tokens,
		"cost_micros", guess.CostMicros,
		"current", usage.Current,
		"limit", usage.Limit,
	)

	return &Result{Guess: guess, Usage: usage}, nil
}
