// Package langdetect picks the language used to select rewrite style
// examples. Posts are either Russian or English; everything else is
// treated as English.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// IsRussian reports whether text should get the Russian example set.
// Falls back to a Cyrillic scan when the detector abstains on short input.
func IsRussian(text string) bool {
	if code := DetectISO6391(text); code != "" {
		return code == "ru"
	}
	return containsCyrillic(text)
}

func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func containsCyrillic(text string) bool {
	for _, r := range text {
		if lower := unicode.ToLower(r); lower >= 'а' && lower <= 'я' {
			return true
		}
	}
	return false
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Russian).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
