package assistant

import (
	"strings"

	"github.com/sashabaranov/go-openai"
)

const contentTypeText = "text"

// ExtractAnswer joins the text blocks of a message's content with a single space.
// Non-text blocks (images, files) are skipped.
func ExtractAnswer(content []openai.MessageContent) string {
	parts := make([]string, 0, len(content))
	for _, block := range content {
		if block.Type != contentTypeText || block.Text == nil {
			continue
		}
		parts = append(parts, block.Text.Value)
	}
	return strings.Join(parts, " ")
}
