package openvoice

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voicetranslate/internal/pkg/voicetranslate/cloner"
)

func TestRegistered(t *testing.T) {
	if !cloner.IsRegistered("openvoice") {
		t.Fatal("openvoice backend not registered")
	}
}

func TestNewCloner_MissingCheckpoints(t *testing.T) {
	_, err := NewCloner(cloner.Config{ModelsDir: t.TempDir()})
	var mde *cloner.MissingDependencyError
	if !errors.As(err, &mde) {
		t.Fatalf("NewCloner() error = %v, want *MissingDependencyError", err)
	}
	if mde.Dependency != "openvoice checkpoints" {
		t.Errorf("Dependency = %q, want openvoice checkpoints", mde.Dependency)
	}
}

func TestNewCloner_PartialCheckpoints(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "openvoice"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "openvoice", encoderModel), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewCloner(cloner.Config{ModelsDir: dir})
	var mde *cloner.MissingDependencyError
	if !errors.As(err, &mde) {
		t.Fatalf("NewCloner() with only the encoder present error = %v, want *MissingDependencyError", err)
	}
}
