// Package m2m runs an M2M100-class multilingual translation model exported
// to ONNX: an encoder session and an autoregressive decoder session with
// greedy decoding, the forced BOS token selecting the target language.
package m2m

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"

	"voicetranslate/internal/pkg/voicetranslate/language"
	"voicetranslate/internal/pkg/voicetranslate/ortenv"
	"voicetranslate/internal/pkg/voicetranslate/translator"
)

const (
	encoderModel = "encoder.onnx"
	decoderModel = "decoder.onnx"
	vocabFile    = "vocab.json"
)

type Config struct {
	// ModelsDir is the weight cache root; files live under
	// <ModelsDir>/translation/.
	ModelsDir         string
	MaxSequenceLength int
	BatchSize         int
	UseGPU            bool
}

// M2M implements translator.Translator. Sessions are created lazily on the
// first Translate call and stay resident for the process lifetime. The
// runtime handle is shared across sessions, so inference is serialized with
// a mutex.
type M2M struct {
	cfg Config

	loadOnce sync.Once
	loadErr  error

	runMu   sync.Mutex
	encoder *ort.DynamicAdvancedSession
	decoder *ort.DynamicAdvancedSession
	tok     *Tokenizer
}

var _ translator.Translator = (*M2M)(nil)

func New(cfg Config) *M2M {
	if cfg.MaxSequenceLength <= 0 {
		cfg.MaxSequenceLength = 512
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &M2M{cfg: cfg}
}

func (m *M2M) dir() string {
	return filepath.Join(m.cfg.ModelsDir, "translation")
}

// Probe verifies the model files are present and the vocabulary parses,
// without creating inference sessions. Called at process start; a failure
// here is fatal for the server.
func (m *M2M) Probe() error {
	for _, name := range []string{encoderModel, decoderModel} {
		if _, err := os.Stat(filepath.Join(m.dir(), name)); err != nil {
			return fmt.Errorf("translation model file %s not found under %s: %w", name, m.dir(), err)
		}
	}
	if _, err := LoadTokenizer(filepath.Join(m.dir(), vocabFile)); err != nil {
		return fmt.Errorf("translation vocabulary unusable: %w", err)
	}
	return nil
}

func (m *M2M) load() error {
	m.loadOnce.Do(func() {
		log.Info().Str("dir", m.dir()).Msg("Loading translation model...")

		if err := ortenv.Initialize(); err != nil {
			m.loadErr = err
			return
		}

		tok, err := LoadTokenizer(filepath.Join(m.dir(), vocabFile))
		if err != nil {
			m.loadErr = err
			return
		}

		opts, err := ortenv.SessionOptions(m.cfg.UseGPU)
		if err != nil {
			m.loadErr = err
			return
		}
		defer opts.Destroy()

		encoder, err := ort.NewDynamicAdvancedSession(
			filepath.Join(m.dir(), encoderModel),
			[]string{"input_ids", "attention_mask"},
			[]string{"last_hidden_state"},
			opts,
		)
		if err != nil {
			m.loadErr = fmt.Errorf("failed to create encoder session: %w", err)
			return
		}

		decoder, err := ort.NewDynamicAdvancedSession(
			filepath.Join(m.dir(), decoderModel),
			[]string{"input_ids", "encoder_hidden_states", "encoder_attention_mask"},
			[]string{"logits"},
			opts,
		)
		if err != nil {
			encoder.Destroy()
			m.loadErr = fmt.Errorf("failed to create decoder session: %w", err)
			return
		}

		m.tok = tok
		m.encoder = encoder
		m.decoder = decoder
		log.Info().Int("vocab", tok.VocabSize()).Msg("Translation model loaded")
	})
	return m.loadErr
}

func (m *M2M) Translate(ctx context.Context, text, src, dst string) (string, error) {
	from, to, err := translator.Resolve(src, dst)
	if err != nil {
		return "", err
	}
	if from.Code == to.Code {
		return text, nil
	}

	if err := m.load(); err != nil {
		return "", fmt.Errorf("failed to load translation model: %w", err)
	}

	srcID, ok := m.tok.LangID(from.Code)
	if !ok {
		return "", &translator.UnsupportedLanguageError{Code: from.Code}
	}
	dstID, ok := m.tok.LangID(to.Code)
	if !ok {
		return "", &translator.UnsupportedLanguageError{Code: to.Code}
	}

	inputIDs := append([]int64{srcID}, m.tok.Encode(text)...)
	inputIDs = append(inputIDs, eosID)
	if len(inputIDs) > m.cfg.MaxSequenceLength {
		return "", fmt.Errorf("%w: %d tokens (max %d)", translator.ErrTextTooLong, len(inputIDs), m.cfg.MaxSequenceLength)
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	hidden, hiddenShape, err := m.encode(inputIDs)
	if err != nil {
		return "", err
	}

	outIDs, err := m.decode(ctx, inputIDs, hidden, hiddenShape, dstID)
	if err != nil {
		return "", err
	}

	return m.tok.Decode(outIDs), nil
}

// BatchTranslate works through texts in chunks of BatchSize, checking for
// cancellation between chunks so a large batch can be abandoned early.
func (m *M2M) BatchTranslate(ctx context.Context, texts []string, src, dst string) ([]string, error) {
	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += m.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + m.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		for _, text := range texts[start:end] {
			translated, err := m.Translate(ctx, text, src, dst)
			if err != nil {
				return nil, err
			}
			out = append(out, translated)
		}
	}
	return out, nil
}

func (m *M2M) Languages() []language.Language {
	return language.All()
}

func (m *M2M) encode(inputIDs []int64) ([]float32, []int64, error) {
	seqLen := int64(len(inputIDs))

	idsTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), inputIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	mask := make([]int64, seqLen)
	for i := range mask {
		mask[i] = 1
	}
	maskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), mask)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := m.encoder.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("failed to run encoder: %w", err)
	}
	if outputs[0] == nil {
		return nil, nil, fmt.Errorf("no output from encoder")
	}
	defer outputs[0].Destroy()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("unexpected encoder output type")
	}

	data := hiddenTensor.GetData()
	hidden := make([]float32, len(data))
	copy(hidden, data)

	return hidden, hiddenTensor.GetShape(), nil
}

// decode runs the decoder autoregressively with greedy argmax until EOS or
// the sequence limit. The full prefix is re-fed each step; past-key caching
// is not worth the complexity at form-submission scale.
func (m *M2M) decode(ctx context.Context, inputIDs []int64, hidden []float32, hiddenShape []int64, dstLangID int64) ([]int64, error) {
	encMask := make([]int64, len(inputIDs))
	for i := range encMask {
		encMask[i] = 1
	}

	decoded := []int64{eosID, dstLangID}
	for len(decoded) < m.cfg.MaxSequenceLength {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := m.decodeStep(decoded, hidden, hiddenShape, encMask)
		if err != nil {
			return nil, err
		}
		if next == eosID {
			break
		}
		decoded = append(decoded, next)
	}

	return decoded[2:], nil
}

func (m *M2M) decodeStep(decoded []int64, hidden []float32, hiddenShape []int64, encMask []int64) (int64, error) {
	idsTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(decoded))), decoded)
	if err != nil {
		return 0, fmt.Errorf("failed to create decoder input tensor: %w", err)
	}
	defer idsTensor.Destroy()

	hiddenTensor, err := ort.NewTensor(ort.NewShape(hiddenShape...), hidden)
	if err != nil {
		return 0, fmt.Errorf("failed to create hidden state tensor: %w", err)
	}
	defer hiddenTensor.Destroy()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(encMask))), encMask)
	if err != nil {
		return 0, fmt.Errorf("failed to create encoder mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := m.decoder.Run([]ort.Value{idsTensor, hiddenTensor, maskTensor}, outputs); err != nil {
		return 0, fmt.Errorf("failed to run decoder: %w", err)
	}
	if outputs[0] == nil {
		return 0, fmt.Errorf("no output from decoder")
	}
	defer outputs[0].Destroy()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected decoder output type")
	}

	logits := logitsTensor.GetData()
	shape := logitsTensor.GetShape()
	if len(shape) != 3 {
		return 0, fmt.Errorf("unexpected logits shape %v", shape)
	}
	vocab := int(shape[2])
	last := logits[(len(decoded)-1)*vocab : len(decoded)*vocab]

	best := 0
	for i, v := range last {
		if v > last[best] {
			best = i
		}
	}
	return int64(best), nil
}

// Close releases the inference sessions. Safe to call before first use.
func (m *M2M) Close() error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.encoder != nil {
		if err := m.encoder.Destroy(); err != nil {
			return err
		}
		m.encoder = nil
	}
	if m.decoder != nil {
		if err := m.decoder.Destroy(); err != nil {
			return err
		}
		m.decoder = nil
	}
	return nil
}
