// Package ortenv centralizes ONNX runtime initialization so the cloning and
// translation packages can share one environment. The shared library is
// resolved from ONNXRUNTIME_LIB_PATH or common install locations per OS.
package ortenv

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

func LibraryPath() string {
	envPath := os.Getenv("ONNXRUNTIME_LIB_PATH")
	if envPath != "" {
		return envPath
	}

	switch runtime.GOOS {
	case "linux":
		paths := []string{
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"./libonnxruntime.so",
			"./lib/libonnxruntime.so",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libonnxruntime.so"
	case "windows":
		paths := []string{
			"onnxruntime.dll",
			"./onnxruntime.dll",
			"./lib/onnxruntime.dll",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "onnxruntime.dll"
	case "darwin":
		paths := []string{
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
			"./libonnxruntime.dylib",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// Initialize sets up the ONNX runtime environment once per process. The
// environment stays alive until exit; sessions are owned by their packages.
func Initialize() error {
	initOnce.Do(func() {
		ort.SetSharedLibraryPath(LibraryPath())
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	})
	return initErr
}

// SessionOptions builds session options, appending the CUDA execution
// provider when useGPU is set. A GPU that fails to attach falls back to CPU
// rather than failing the session.
func SessionOptions(useGPU bool) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if !useGPU {
		return opts, nil
	}
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		log.Warn().Err(err).Msg("CUDA provider unavailable, falling back to CPU")
		return opts, nil
	}
	defer cudaOpts.Destroy()
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		log.Warn().Err(err).Msg("failed to attach CUDA provider, falling back to CPU")
	}
	return opts, nil
}
