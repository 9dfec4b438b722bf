// Package styleprofile aggregates a source's recent posts into a compact
// description of how that source writes. The rendered profile steers the
// rewrite prompt; sources without enough history get no profile and fall
// back to generic examples.
package styleprofile

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var wordRe = regexp.MustCompile(`[A-Za-zА-Яа-яЁё0-9']+`)

// Profile is the aggregated signature of one source's writing. A zero
// SampleSize means no profile could be built.
type Profile struct {
	SampleSize       int
	AvgChars         int
	AvgSentenceWords float64
	Tempo            string
	TopOpenings      []string
	TopLabels        []string
	ColonRatio       float64
	DashRatio        float64
	NewlineRatio     float64
	ListRatio        float64
	EmojiRatio       float64
	TopEmojis        []string
}

// Build aggregates texts into a Profile. Blank texts are ignored; an empty
// usable set yields the zero Profile.
func Build(texts []string) Profile {
	usable := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) != "" {
			usable = append(usable, text)
		}
	}
	if len(usable) == 0 {
		return Profile{}
	}

	var charSum int
	var sentenceWordLengths []int
	for _, text := range usable {
		charSum += utf8.RuneCountInString(text)
		for _, sentence := range splitSentences(text) {
			if n := len(words(sentence)); n > 0 {
				sentenceWordLengths = append(sentenceWordLengths, n)
			}
		}
	}

	avgChars := float64(charSum) / float64(len(usable))
	avgSentenceWords := 0.0
	if len(sentenceWordLengths) > 0 {
		sum := 0
		for _, n := range sentenceWordLengths {
			sum += n
		}
		avgSentenceWords = float64(sum) / float64(len(sentenceWordLengths))
	}

	// Tempo is judged on the unrounded mean; 10.0 is still short and 17.0
	// is still medium.
	tempo := "long"
	switch {
	case avgSentenceWords <= 10:
		tempo = "short"
	case avgSentenceWords <= 17:
		tempo = "medium"
	}

	var openings, labels, emojis counter
	var colonPosts, dashPosts, newlinePosts, listPosts, emojiPosts int

	for _, text := range usable {
		if opening := openingKey(text); opening != "" {
			openings.add(opening)
		}
		if label := leadLabel(text); label != "" {
			labels.add(label)
		}

		if strings.Contains(text, ":") {
			colonPosts++
		}
		if strings.Contains(text, "—") || strings.Contains(text, " - ") {
			dashPosts++
		}
		if strings.Contains(text, "\n") {
			newlinePosts++
		}
		if countListLines(text) > 0 {
			listPosts++
		}

		hasEmoji := false
		for _, r := range text {
			if isEmojiRune(r) {
				hasEmoji = true
				emojis.add(string(r))
			}
		}
		if hasEmoji {
			emojiPosts++
		}
	}

	total := float64(len(usable))
	return Profile{
		SampleSize:       len(usable),
		AvgChars:         int(math.Round(avgChars)),
		AvgSentenceWords: math.Round(avgSentenceWords*10) / 10,
		Tempo:            tempo,
		TopOpenings:      openings.top(5),
		TopLabels:        labels.top(5),
		ColonRatio:       float64(colonPosts) / total,
		DashRatio:        float64(dashPosts) / total,
		NewlineRatio:     float64(newlinePosts) / total,
		ListRatio:        float64(listPosts) / total,
		EmojiRatio:       float64(emojiPosts) / total,
		TopEmojis:        emojis.top(5),
	}
}

// Render produces the profile block fed to the rewrite prompt, one finding
// per line. The zero Profile renders as "".
func (p Profile) Render() string {
	if p.SampleSize == 0 {
		return ""
	}

	parts := []string{
		fmt.Sprintf("Sample size: %d posts", p.SampleSize),
		fmt.Sprintf("Avg length: ~%d chars", p.AvgChars),
	}
	if p.AvgSentenceWords != 0 {
		parts = append(parts, fmt.Sprintf("Avg sentence length: ~%.1f words", p.AvgSentenceWords))
	}
	parts = append(parts, fmt.Sprintf("Tempo: %s sentences", p.Tempo))

	if len(p.TopLabels) > 0 {
		parts = append(parts, "Lead labels: "+strings.Join(p.TopLabels, ", "))
	}
	if len(p.TopOpenings) > 0 {
		parts = append(parts, "Common openings: "+strings.Join(p.TopOpenings, ", "))
	}

	parts = append(parts, fmt.Sprintf(
		"Formatting: colon in %d%%, dash in %d%%, lists in %d%%, newlines in %d%%.",
		int(p.ColonRatio*100),
		int(p.DashRatio*100),
		int(p.ListRatio*100),
		int(p.NewlineRatio*100),
	))

	if p.EmojiRatio > 0 {
		emojiPart := fmt.Sprintf("Emojis in %d%% posts", int(p.EmojiRatio*100))
		if len(p.TopEmojis) > 0 {
			emojiPart += "; common: " + strings.Join(p.TopEmojis, ", ")
		}
		parts = append(parts, emojiPart)
	}

	return strings.Join(parts, "\n")
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// splitSentences collapses whitespace, then cuts after .!?… followed by a
// space. The trailing fragment without a terminator is kept.
func splitSentences(text string) []string {
	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if cleaned == "" {
		return nil
	}

	var sentences []string
	runes := []rune(cleaned)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if isSentenceTerminator(runes[i]) && runes[i+1] == ' ' {
			if sentence := string(runes[start : i+1]); sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 2
			i++
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func words(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// openingKey is the lowercased first two words of a post (or the single
// word for one-word posts).
func openingKey(text string) string {
	w := words(text)
	switch {
	case len(w) >= 2:
		return strings.ToLower(w[0] + " " + w[1])
	case len(w) == 1:
		return strings.ToLower(w[0])
	default:
		return ""
	}
}

// leadLabel extracts a short "Label:" prefix from the first line, at most
// three words with the colon within the first 15 characters.
func leadLabel(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	firstLine := strings.TrimSpace(strings.SplitN(trimmed, "\n", 2)[0])

	runes := []rune(firstLine)
	colonIdx := -1
	for i, r := range runes {
		if r == ':' {
			colonIdx = i
			break
		}
	}
	if colonIdx <= 0 || colonIdx > 15 {
		return ""
	}

	label := strings.TrimSpace(string(runes[:colonIdx]))
	if label == "" || len(strings.Fields(label)) > 3 {
		return ""
	}
	return label
}

func countListLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "•") || strings.HasPrefix(trimmed, "—") {
			count++
		}
	}
	return count
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F6FF:
		return true
	case r >= 0x1F700 && r <= 0x1FAFF:
		return true
	case r >= 0x2700 && r <= 0x27BF:
		return true
	case r >= 0x24C2 && r <= 0x1F251:
		return true
	}
	return false
}

// counter tallies keys preserving first-seen order so that top breaks count
// ties in favor of earlier keys.
type counter struct {
	counts map[string]int
	order  []string
}

func (c *counter) add(key string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(n int) []string {
	if len(c.order) == 0 {
		return nil
	}

	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
