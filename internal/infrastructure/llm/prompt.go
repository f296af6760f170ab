package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const summaryPrompt = `You are a news editor writing the abstract of the article below.

Rules:
- Open with the core of the story: who, what, where, when and why.
- No preambles such as "This article describes" or "In summary".
- Wrap the most important facts, names, dates and figures in **double asterisks**.
- Write between 3 and 10 information-dense sentences.
- Stay neutral. Use only facts stated in the article; add nothing.
- Write in the language of the article.

Title: %s

Article:
%s`

// BuildPrompt renders the summary instruction for one article, sending at most
// MaxPromptContent characters of its text.
func BuildPrompt(title, content string) string {
	return fmt.Sprintf(summaryPrompt, strings.TrimSpace(title), truncateRunes(strings.TrimSpace(content), MaxPromptContent))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
