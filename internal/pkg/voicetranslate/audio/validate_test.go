package audio

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func encodeTone(t *testing.T, duration float64, rate int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := Tone(440, duration, rate).EncodeWAV(&buf); err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	return &buf
}

func TestValidate(t *testing.T) {
	opts := ValidateOptions{MinDuration: 1.0, MaxDuration: 30.0}

	tests := []struct {
		name     string
		duration float64
		wantErr  bool
	}{
		{name: "inside window", duration: 8.0, wantErr: false},
		{name: "at minimum", duration: 1.0, wantErr: false},
		{name: "too short", duration: 0.5, wantErr: true},
		{name: "too long", duration: 31.0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, meta, err := Validate(encodeTone(t, tt.duration, 24000), opts)
			if tt.wantErr {
				if _, ok := err.(*ValidationError); !ok {
					t.Fatalf("Validate() error = %v, want *ValidationError", err)
				}
				if a != nil || meta != nil {
					t.Errorf("Validate() returned data despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if math.Abs(meta.Duration-tt.duration) > 0.001 {
				t.Errorf("Duration = %f, want %f", meta.Duration, tt.duration)
			}
			if meta.SampleRate != 24000 {
				t.Errorf("SampleRate = %d, want 24000", meta.SampleRate)
			}
		})
	}
}

func TestValidate_EmptyFile(t *testing.T) {
	_, _, err := Validate(strings.NewReader(""), DefaultValidateOptions())
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestValidate_TrueMetadataAtOtherRates(t *testing.T) {
	a, meta, err := Validate(encodeTone(t, 2.0, 48000), DefaultValidateOptions())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if meta.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", meta.SampleRate)
	}
	if a.SampleRate != 48000 {
		t.Errorf("decoded SampleRate = %d, want 48000", a.SampleRate)
	}
	if math.Abs(meta.Duration-2.0) > 0.001 {
		t.Errorf("Duration = %f, want 2.0", meta.Duration)
	}
}
