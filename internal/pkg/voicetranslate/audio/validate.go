package audio

import (
	"fmt"
	"io"
)

// ValidationError reports input audio that fails the upload contract.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid audio: " + e.Reason
}

// CodecError reports a container this build cannot decode natively. It is a
// distinct condition from malformed input: the fix is installing an external
// codec backend, not re-recording the sample.
type CodecError struct {
	Format string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("unsupported container %q: decoding requires an external codec backend", e.Format)
}

// ValidateOptions bounds the accepted duration window in seconds.
type ValidateOptions struct {
	MinDuration float64
	MaxDuration float64
}

// DefaultValidateOptions matches the voice-sample upload window.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{MinDuration: 1.0, MaxDuration: 30.0}
}

// Validate decodes the stream and checks it against the duration window.
// On success it returns the file's true metadata alongside the decoded
// mono waveform.
func Validate(r io.Reader, opts ValidateOptions) (*Audio, *Meta, error) {
	a, meta, err := DecodeWAV(r)
	if err != nil {
		return nil, nil, err
	}
	if meta.Samples == 0 {
		return nil, nil, &ValidationError{Reason: "audio file is empty"}
	}
	if opts.MinDuration > 0 && meta.Duration < opts.MinDuration {
		return nil, nil, &ValidationError{
			Reason: fmt.Sprintf("audio too short: %.2fs (minimum %.0fs required)", meta.Duration, opts.MinDuration),
		}
	}
	if opts.MaxDuration > 0 && meta.Duration > opts.MaxDuration {
		return nil, nil, &ValidationError{
			Reason: fmt.Sprintf("audio too long: %.2fs (maximum %.0fs allowed)", meta.Duration, opts.MaxDuration),
		}
	}
	return a, meta, nil
}
