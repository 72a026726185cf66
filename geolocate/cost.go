package geolocate

import "math"

// Vision model token accounting. Images are billed in 32px square
// patches, capped at maxPatches; oversized images are scaled down to fit
// before counting. The per-model multiplier converts patches to tokens.
const (
	patchSize       = 32
	maxPatches      = 1536
	tokenMultiplier = 2.46
)

// Per-million-token prices in micro-dollars.
const (
	inputPriceMicros  = 150_000   // $0.15 per 1M input tokens
	outputPriceMicros = 1_000_000 // $1.00 per 1M output tokens
)

// ImageTokens returns the input token cost of an image of the given pixel
// dimensions. Returns 0 for degenerate dimensions.
func ImageTokens(width, height int) int64 {
	if width <= 0 || height <= 0 {
		return 0
	}

	raw := ceilDiv(width, patchSize) * ceilDiv(height, patchSize)
	final := raw

	if raw > maxPatches {
		// Shrink so the patch grid fits, then snap down to whole patches.
		r := math.Sqrt(float64(patchSize*patchSize*maxPatches) / float64(width*height))
		scaledW := float64(width) * r
		scaledH := float64(height) * r

		patchesW := scaledW / patchSize
		patchesH := scaledH / patchSize
		adjust := math.Min(
			math.Floor(patchesW)/patchesW,
			math.Floor(patchesH)/patchesH,
		)

		finalW := int(math.Floor(scaledW * adjust))
		finalH := int(math.Floor(scaledH * adjust))
		final = ceilDiv(finalW, patchSize) * ceilDiv(finalH, patchSize)
	}

	if final > maxPatches {
		final = maxPatches
	}

	return int64(math.Round(float64(final) * tokenMultiplier))
}

// CostMicros returns the call cost in micro-dollars for the given input
// (image) and output (text) token counts.
func CostMicros(inputTokens, outputTokens int64) int64 {
	return inputTokens*inputPriceMicros/1_000_000 + outputTokens*outputPriceMicros/1_000_000
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
