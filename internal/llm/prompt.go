package llm

import (
	"fmt"
	"strings"
)

const QAPrompt = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.
Answer in a few sentences and stay close to the wording of the context.`

// BuildQAPrompt stuffs every retrieved chunk into one context block ahead of
// the question.
func BuildQAPrompt(question string, contexts []string) string {
	var sb strings.Builder
	sb.WriteString(QAPrompt)
	sb.WriteString("\n\n---\n")
	for i, c := range contexts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(c))
	}
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s\nHelpful Answer:", strings.TrimSpace(question)))
	return sb.String()
}
