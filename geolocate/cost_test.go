package geolocate

import "testing"

func TestImageTokens(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		tokens int64
	}{
		// ceil(640/32)*ceil(480/32) = 20*15 = 300 patches; 300*2.46 = 738
		{"VGA", 640, 480, 738},
		// 32*32 = 1 patch; round(2.46) = 2
		{"single patch", 32, 32, 2},
		// 33x33 spills into 2x2 patches; round(4*2.46) = 10
		{"just over one patch", 33, 33, 10},
		// 1024x768: 32*24 = 768 patches; 768*2.46 = 1889.28 -> 1889
		{"XGA", 1024, 768, 1889},
		{"zero width", 0, 480, 0},
		{"zero height", 640, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageTokens(tt.w, tt.h); got != tt.tokens {
				t.Errorf("ImageTokens(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.tokens)
			}
		})
	}
}

func TestImageTokensScalesDownLargeImages(t *testing.T) {
	// 4K and beyond must be scaled so the patch count never exceeds the
	// cap, which bounds tokens at round(1536*2.46) = 3779.
	const maxTokens = 3779

	for _, dims := range [][2]int{{3840, 2160}, {4000, 3000}, {8000, 8000}, {10000, 500}} {
		got := ImageTokens(dims[0], dims[1])
		if got <= 0 {
			t.Errorf("ImageTokens(%d, %d) = %d, want positive", dims[0], dims[1], got)
		}
		if got > maxTokens {
			t.Errorf("ImageTokens(%d, %d) = %d, exceeds cap %d", dims[0], dims[1], got, maxTokens)
		}
	}
}

func TestImageTokensMonotonicUnderCap(t *testing.T) {
	small := ImageTokens(320, 240)
	large := ImageTokens(640, 480)
	if small >= large {
		t.Errorf("smaller image cost %d >= larger image cost %d", small, large)
	}
}

func TestCostMicros(t *testing.T) {
	tests := []struct {
		name     string
		in, out  int64
		expected int64
	}{
		{"zero", 0, 0, 0},
		// 738 input tokens at $0.15/M = 110.7 micro-dollars -> 110
		{"input only", 738, 0, 110},
		// 200 output tokens at $1.00/M = 200 micro-dollars
		{"output only", 0, 200, 200},
		{"both", 738, 200, 310},
		// one million input tokens is exactly $0.15
		{"million input", 1_000_000, 0, 150_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CostMicros(tt.in, tt.out); got != tt.expected {
				t.Errorf("CostMicros(%d, %d) = %d, want %d", tt.in, tt.out, got, tt.expected)
			}
		})
	}
}
