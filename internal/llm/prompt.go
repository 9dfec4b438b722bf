package llm

import (
	"fmt"
	"strings"

	"github.com/usrssssx/cannibal-ai/internal/langdetect"
)

const rewriteSystemPrompt = "You are a senior news editor. Rewrite the source post to preserve facts, " +
	"keep the admin tone, and avoid adding new information. Be concise and " +
	"informative."

// Built-in fallback examples, used whenever a source has no learned profile
// or as the base tone alongside one.
var (
	russianStyleExamples = []string{
		"Коротко о главном: ЦБ оставил ставку без изменений. Рынок отреагировал спокойно, аналитики ждали именно этого.",
		"Обновление по стройке: новые станции откроют в декабре, сроки не сдвигаются. Подробная схема — в следующем посте.",
		"Итоги дня. Индексы закрылись в плюсе, рубль укрепился, нефть держится у отметки 80.",
	}
	englishStyleExamples = []string{
		"Quick update: the council approved the transit budget. Construction starts in March, two lines at once.",
		"Day recap. Tech closed higher, oil held steady, futures point slightly up.",
		"Heads up: the new release lands Friday. Full changelog in the pinned post.",
	}
)

// ExamplesForText picks the generic example set matching the text language.
func ExamplesForText(text string) []string {
	if langdetect.IsRussian(text) {
		return russianStyleExamples
	}
	return englishStyleExamples
}

func rewriteMessages(text string, styleExamples []string, styleProfile string) []Message {
	var b strings.Builder
	b.WriteString("Style examples:\n")
	b.WriteString(styleBlock(styleExamples))
	if profile := strings.TrimSpace(styleProfile); profile != "" {
		b.WriteString("\n\nStyle profile:\n")
		b.WriteString(profile)
	}
	b.WriteString("\n\nSource post:\n")
	b.WriteString(text)
	b.WriteString("\n\nRewrite the source post in the same tone and language as the examples.")

	return []Message{
		{Role: "system", Content: rewriteSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func styleBlock(examples []string) string {
	parts := make([]string, 0, len(examples))
	for i, example := range examples {
		parts = append(parts, fmt.Sprintf("Example %d:\n%s", i+1, example))
	}
	return strings.Join(parts, "\n\n")
}
