package cloner

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint layout: magic, version, sample rate, sample count, creation
// time (unix seconds), embedding length, embedding data. Little endian
// throughout.
var checkpointMagic = [4]byte{'V', 'T', 'V', 'M'}

const checkpointVersion = 1

// SaveModel writes a trained voice model to path, creating parent
// directories as needed.
func SaveModel(path string, m *VoiceModel) error {
	if !m.Trained() {
		return ErrNotTrained
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(checkpointMagic[:]); err != nil {
		return err
	}
	header := []uint32{
		checkpointVersion,
		uint32(m.SampleRate),
		uint32(m.NumSamples),
	}
	for _, v := range header {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(f, binary.LittleEndian, m.CreatedAt.Unix()); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.Embedding))); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, m.Embedding)
}

// LoadModel reads a checkpoint previously written by SaveModel. The model ID
// is recovered from the file name.
func LoadModel(path string) (*VoiceModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint header: %w", err)
	}
	if magic != checkpointMagic {
		return nil, fmt.Errorf("not a voice model checkpoint: %s", path)
	}

	var version, sampleRate, numSamples uint32
	for _, dst := range []*uint32{&version, &sampleRate, &numSamples} {
		if err := binary.Read(f, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("failed to read checkpoint header: %w", err)
		}
	}
	if version != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", version)
	}

	var createdUnix int64
	if err := binary.Read(f, binary.LittleEndian, &createdUnix); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint header: %w", err)
	}
	var dim uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint header: %w", err)
	}
	if dim == 0 || dim > 1<<16 {
		return nil, fmt.Errorf("invalid embedding length %d", dim)
	}

	embedding := make([]float32, dim)
	if err := binary.Read(f, binary.LittleEndian, embedding); err != nil {
		return nil, fmt.Errorf("failed to read embedding: %w", err)
	}

	name := filepath.Base(path)
	id := name[:len(name)-len(filepath.Ext(name))]

	return &VoiceModel{
		ID:         id,
		Embedding:  embedding,
		SampleRate: int(sampleRate),
		NumSamples: int(numSamples),
		CreatedAt:  time.Unix(createdUnix, 0),
	}, nil
}
