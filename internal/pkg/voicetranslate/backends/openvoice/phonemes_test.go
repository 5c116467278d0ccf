package openvoice

import (
	"testing"

	"voicetranslate/internal/pkg/voicetranslate/language"
)

func TestPhonemize(t *testing.T) {
	ph := NewPhonemizer()

	en, _ := language.Lookup("en")
	got := ph.Phonemize("hello world", en)
	if got == "" {
		t.Fatal("Phonemize returned nothing for plain English")
	}

	es, _ := language.Lookup("es")
	if ph.Phonemize("hola mundo", es) == "" {
		t.Fatal("Phonemize returned nothing for Spanish")
	}
}

func TestTokenizerEncode(t *testing.T) {
	tok := NewTokenizer()

	ids := tok.Encode("həˈloʊ")
	if len(ids) < 2 {
		t.Fatalf("Encode returned %d tokens, want at least a pad plus phonemes", len(ids))
	}
	if ids[0] != 0 {
		t.Errorf("first token = %d, want pad (0)", ids[0])
	}
	for _, id := range ids {
		if id < 0 || int(id) >= tok.VocabSize() {
			t.Fatalf("token %d out of vocabulary range [0,%d)", id, tok.VocabSize())
		}
	}
}

func TestTokenizerEncode_DropsUnknownRunes(t *testing.T) {
	tok := NewTokenizer()
	onlyPad := tok.Encode("☃☃☃")
	if len(onlyPad) != 1 {
		t.Errorf("Encode of unknown runes = %d tokens, want only the pad token", len(onlyPad))
	}
}
