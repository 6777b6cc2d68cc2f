package prompts

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QuestionCount is the number of questions a generation produces
const QuestionCount = 5

// CompletionInstruction is sent as the system message to chat-style models so
// they behave like a plain text-completion endpoint.
const CompletionInstruction = "You are a text completion engine. Continue the user's text exactly where it stops. " +
	"Reply with the continuation only: a single line, no numbering, no labels, no commentary."

// CapitalizeTopic lower-cases the trimmed topic and upper-cases its first character
func CapitalizeTopic(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	r, size := utf8.DecodeRuneInString(topic)
	if r == utf8.RuneError {
		return topic
	}
	return string(unicode.ToUpper(r)) + topic[size:]
}

// InitialPrompt builds the opening prompt for a topic
func InitialPrompt(topic string) string {
	return fmt.Sprintf("Generate questions about %s.", CapitalizeTopic(topic))
}

// AppendQuestion extends the prompt with an accepted question and an open
// answer slot, so the next completion continues the Q&A pattern.
func AppendQuestion(prompt string, n int, question string) string {
	return prompt + fmt.Sprintf("\nQ%d: %s\nA%d:", n, question, n)
}

// FormatQuestion renders an accepted question as a numbered line
func FormatQuestion(n int, question string) string {
	return fmt.Sprintf("%d. %s", n, question)
}

// NormalizeQuestion trims the completion and, unlike a plain trim, also folds
// every inner whitespace run, newlines included, into a single space. Each
// question must stay on one line so the newline-joined result splits back
// into exactly QuestionCount entries.
func NormalizeQuestion(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
