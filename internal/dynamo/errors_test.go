package dynamo

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError_Is(t *testing.T) {
	err := NewConfigError("metrics", "imagenet", ErrUnknownDataset)

	if !errors.Is(err, ErrConfig) {
		t.Error("expected ConfigError to match ErrConfig")
	}
	if !errors.Is(err, ErrUnknownDataset) {
		t.Error("expected ConfigError to unwrap to ErrUnknownDataset")
	}
	if errors.Is(err, ErrPhaseGap) {
		t.Error("ConfigError matched an unrelated sentinel")
	}

	wrapped := fmt.Errorf("select: %w", err)
	if !errors.Is(wrapped, ErrConfig) {
		t.Error("expected wrapped ConfigError to match ErrConfig")
	}

	var ce *ConfigError
	if !errors.As(wrapped, &ce) || ce.Key != "imagenet" {
		t.Errorf("errors.As failed or wrong key: %+v", ce)
	}
}

func TestConfigError_Message(t *testing.T) {
	tests := []struct {
		err  *ConfigError
		want string
	}{
		{NewConfigError("phase", "", ErrPhaseGap), "phase: dynamo: phase table has a gap"},
		{NewConfigError("metrics", "x", ErrUnknownDataset), `metrics "x": dynamo: unknown dataset`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestVec2_Clamp(t *testing.T) {
	tests := []struct {
		in, want Vec2
	}{
		{Vec2{50, 50}, Vec2{50, 50}},
		{Vec2{-3, 104}, Vec2{0, 100}},
		{Vec2{100.5, 0}, Vec2{100, 0}},
	}
	for _, tt := range tests {
		got := tt.in.Clamp()
		if got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if !got.InSpace() {
			t.Errorf("Clamp(%v) left space", tt.in)
		}
	}
}
