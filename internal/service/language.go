package service

import "github.com/abadojack/whatlanggo"

// maxLanguageLength matches the width of the stored language column.
const maxLanguageLength = 5

// LanguageDetector guesses the language of a text.
type LanguageDetector interface {
	Detect(text string) string
}

// WhatlangDetector detects languages with whatlanggo.
type WhatlangDetector struct{}

// Detect returns the ISO 639-1 code of the language of text, or an empty
// string when the guess is not reliable.
func (WhatlangDetector) Detect(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}

	code := info.Lang.Iso6391()
	if len(code) > maxLanguageLength {
		return ""
	}
	return code
}
