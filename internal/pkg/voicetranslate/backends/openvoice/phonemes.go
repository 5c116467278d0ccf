package openvoice

import (
	"strings"

	"github.com/neurlang/goruut/lib"
	"github.com/neurlang/goruut/models/requests"

	"voicetranslate/internal/pkg/voicetranslate/language"
)

// Phonemizer turns text into an IPA string for the target language.
type Phonemizer struct {
	p *lib.Phonemizer
}

func NewPhonemizer() *Phonemizer {
	return &Phonemizer{
		p: lib.NewPhonemizer(nil),
	}
}

func (ph *Phonemizer) Phonemize(text string, lang language.Language) string {
	resp := ph.p.Sentence(requests.PhonemizeSentence{
		Language: lang.Goruut,
		Sentence: text,
	})

	var result strings.Builder
	for i, word := range resp.Words {
		if i > 0 {
			result.WriteString(" ")
		}
		result.WriteString(word.Phonetic)
	}

	return result.String()
}

// symbols is the acoustic model's vocabulary: padding, punctuation, Latin
// letters, then the IPA inventory. Index equals token id.
var symbols = []rune{
	'_', ';', ':', ',', '.', '!', '?', '¡', '¿', '—', '…', '"', '«', '»', '"', '"',
	' ', 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
	'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o',
	'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
	'ɑ', 'ɐ', 'ɒ', 'æ', 'ɓ', 'ʙ', 'β', 'ɔ', 'ɕ', 'ç', 'ɗ', 'ɖ', 'ð', 'ʤ', 'ə',
	'ɘ', 'ɚ', 'ɛ', 'ɜ', 'ɝ', 'ɞ', 'ɟ', 'ʄ', 'ɡ', 'ɠ', 'ɢ', 'ʛ', 'ɦ', 'ɧ', 'ħ',
	'ɥ', 'ʜ', 'ɨ', 'ɪ', 'ʝ', 'ɭ', 'ɬ', 'ɫ', 'ɮ', 'ʟ', 'ɱ', 'ɯ', 'ɰ', 'ŋ', 'ɳ',
	'ɲ', 'ɴ', 'ø', 'ɵ', 'ɸ', 'θ', 'œ', 'ɶ', 'ʘ', 'ɹ', 'ɺ', 'ɾ', 'ɻ', 'ʀ', 'ʁ',
	'ɽ', 'ʂ', 'ʃ', 'ʈ', 'ʧ', 'ʉ', 'ʊ', 'ʋ', 'ⱱ', 'ʌ', 'ɣ', 'ɤ', 'ʍ', 'χ', 'ʎ',
	'ʏ', 'ʑ', 'ʐ', 'ʒ', 'ʔ', 'ʡ', 'ʕ', 'ʢ', 'ǀ', 'ǁ', 'ǂ', 'ǃ', 'ˈ', 'ˌ', 'ː',
	'ˑ', 'ʼ', 'ʴ', 'ʰ', 'ʱ', 'ʲ', 'ʷ', 'ˠ', 'ˤ', '˞', '↓', '↑', '→', '↗', '↘',
	'\'', 'ᵻ',
}

// Tokenizer maps an IPA string to acoustic model token ids. Unknown runes
// are dropped rather than erroring; the phonemizer occasionally emits marks
// outside the model vocabulary.
type Tokenizer struct {
	symbolToIndex map[rune]int64
	padIndex      int64
}

func NewTokenizer() *Tokenizer {
	symbolToIndex := make(map[rune]int64)
	for i, s := range symbols {
		symbolToIndex[s] = int64(i)
	}

	return &Tokenizer{
		symbolToIndex: symbolToIndex,
		padIndex:      0,
	}
}

func (t *Tokenizer) Encode(phonemes string) []int64 {
	tokens := make([]int64, 0, len(phonemes)+1)
	tokens = append(tokens, t.padIndex)
	for _, r := range phonemes {
		if idx, ok := t.symbolToIndex[r]; ok {
			tokens = append(tokens, idx)
		}
	}
	return tokens
}

func (t *Tokenizer) VocabSize() int {
	return len(symbols)
}
