package m2m

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Special token ids follow the M2M100 convention.
const (
	bosID int64 = 0
	padID int64 = 1
	eosID int64 = 2
	unkID int64 = 3
)

const wordBoundary = "▁"

// Tokenizer is a SentencePiece-style subword tokenizer backed by the model's
// vocabulary file. Encoding is greedy longest-match per whitespace-separated
// word, with the ▁ marker for word boundaries; anything unmatched falls back
// to per-rune pieces and finally <unk>.
type Tokenizer struct {
	vocab     map[string]int64
	idToPiece map[int64]string
	maxPiece  int
}

func LoadTokenizer(vocabPath string) (*Tokenizer, error) {
	raw, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	var vocab map[string]int64
	if err := json.Unmarshal(raw, &vocab); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	t := &Tokenizer{
		vocab:     vocab,
		idToPiece: make(map[int64]string, len(vocab)),
	}
	for piece, id := range vocab {
		t.idToPiece[id] = piece
		if len(piece) > t.maxPiece {
			t.maxPiece = len(piece)
		}
	}
	return t, nil
}

// LangID returns the id of the language token, e.g. "__en__".
func (t *Tokenizer) LangID(code string) (int64, bool) {
	id, ok := t.vocab["__"+code+"__"]
	return id, ok
}

// Encode tokenizes text into vocabulary ids, without special tokens.
func (t *Tokenizer) Encode(text string) []int64 {
	var ids []int64
	for _, word := range strings.Fields(text) {
		ids = append(ids, t.encodeWord(wordBoundary+word)...)
	}
	return ids
}

func (t *Tokenizer) encodeWord(word string) []int64 {
	var ids []int64
	runes := []rune(word)
	for i := 0; i < len(runes); {
		// greedy longest match starting at i
		matched := 0
		var matchedID int64
		limit := len(runes)
		for j := limit; j > i; j-- {
			piece := string(runes[i:j])
			if len(piece) > t.maxPiece {
				continue
			}
			if id, ok := t.vocab[piece]; ok {
				matched = j - i
				matchedID = id
				break
			}
		}
		if matched == 0 {
			// no piece covers this rune
			if id, ok := t.vocab[string(runes[i])]; ok {
				matchedID = id
			} else {
				matchedID = unkID
			}
			matched = 1
		}
		ids = append(ids, matchedID)
		i += matched
	}
	return ids
}

// Decode renders ids back to text, skipping special and language tokens.
func (t *Tokenizer) Decode(ids []int64) string {
	var sb strings.Builder
	for _, id := range ids {
		if id == bosID || id == padID || id == eosID || id == unkID {
			continue
		}
		piece, ok := t.idToPiece[id]
		if !ok {
			continue
		}
		if strings.HasPrefix(piece, "__") && strings.HasSuffix(piece, "__") {
			continue
		}
		sb.WriteString(piece)
	}
	out := strings.ReplaceAll(sb.String(), wordBoundary, " ")
	return strings.TrimSpace(out)
}

// VocabSize reports the number of known pieces.
func (t *Tokenizer) VocabSize() int {
	return len(t.vocab)
}
