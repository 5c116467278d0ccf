package audio

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	a := Tone(440, 1.0, 24000)
	out := Normalize(a, -20.0)

	rms := rmsLevel(out.Samples)
	gotDB := 20 * math.Log10(rms)
	// Clipping can keep a hot signal slightly under target; allow 1 dB.
	if math.Abs(gotDB-(-20.0)) > 1.0 {
		t.Errorf("normalized level = %.2f dBFS, want -20.0 ± 1.0", gotDB)
	}
	if len(out.Samples) != len(a.Samples) {
		t.Errorf("sample count changed: %d -> %d", len(a.Samples), len(out.Samples))
	}
}

func TestNormalize_Silence(t *testing.T) {
	a := &Audio{Samples: make([]float32, 1000), SampleRate: 24000}
	out := Normalize(a, -20.0)
	for i, s := range out.Samples {
		if s != 0 {
			t.Fatalf("sample %d = %f, want 0", i, s)
		}
	}
}

func TestTrimSilence(t *testing.T) {
	rate := 24000
	tone := Tone(440, 1.0, rate)

	// Pad with half a second of silence on each side.
	pad := make([]float32, rate/2)
	samples := append(append(append([]float32{}, pad...), tone.Samples...), pad...)
	padded := &Audio{Samples: samples, SampleRate: rate}

	out := TrimSilence(padded, 40.0)
	if out.Duration() >= padded.Duration() {
		t.Fatalf("TrimSilence did not shorten: %.2fs -> %.2fs", padded.Duration(), out.Duration())
	}
	// The tone itself must survive, within one trim frame per side.
	if math.Abs(out.Duration()-tone.Duration()) > 0.1 {
		t.Errorf("trimmed duration = %.2fs, want ~%.2fs", out.Duration(), tone.Duration())
	}
}

func TestTrimSilence_AllSilent(t *testing.T) {
	a := &Audio{Samples: make([]float32, 4800), SampleRate: 24000}
	out := TrimSilence(a, 20.0)
	if len(out.Samples) != 0 {
		t.Errorf("trimmed silent clip has %d samples, want 0", len(out.Samples))
	}
}

func TestResample(t *testing.T) {
	a := Tone(440, 1.0, 48000)
	out, err := Resample(a, 24000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if out.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", out.SampleRate)
	}
	if math.Abs(out.Duration()-1.0) > 0.05 {
		t.Errorf("Duration = %.3fs, want ~1.0s", out.Duration())
	}
}

func TestResample_NoOp(t *testing.T) {
	a := Tone(440, 1.0, 24000)
	out, err := Resample(a, 24000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if out != a {
		t.Error("same-rate resample should return the input unchanged")
	}
}

func TestSplit(t *testing.T) {
	rate := 24000
	a := Tone(440, 25.0, rate)

	chunks := Split(a, 10.0)
	if len(chunks) != 3 {
		t.Fatalf("Split(25s, 10s) = %d chunks, want 3", len(chunks))
	}
	if d := chunks[0].Duration(); d != 10.0 {
		t.Errorf("chunk 0 duration = %.2fs, want 10.0", d)
	}
	if d := chunks[1].Duration(); d != 10.0 {
		t.Errorf("chunk 1 duration = %.2fs, want 10.0", d)
	}
	if d := chunks[2].Duration(); math.Abs(d-5.0) > 0.001 {
		t.Errorf("chunk 2 duration = %.2fs, want 5.0", d)
	}

	var total int
	for _, c := range chunks {
		total += len(c.Samples)
	}
	if total != len(a.Samples) {
		t.Errorf("chunks hold %d samples, want %d", total, len(a.Samples))
	}
}

func TestSplit_WithinLimit(t *testing.T) {
	a := Tone(440, 3.0, 24000)
	chunks := Split(a, 10.0)
	if len(chunks) != 1 || chunks[0] != a {
		t.Errorf("Split within limit should return the input as a single chunk")
	}
}

func TestPreprocess(t *testing.T) {
	rate := 48000
	tone := Tone(440, 2.0, rate)
	pad := make([]float32, rate/4)
	samples := append(append(append([]float32{}, pad...), tone.Samples...), pad...)
	a := &Audio{Samples: samples, SampleRate: rate}

	out, err := Preprocess(a, DefaultProcessOptions())
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if out.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", out.SampleRate, DefaultSampleRate)
	}
	if out.Duration() <= 0 {
		t.Error("preprocessed audio is empty")
	}
	if out.Duration() >= a.Duration() {
		t.Errorf("silence not trimmed: %.2fs -> %.2fs", a.Duration(), out.Duration())
	}
}
