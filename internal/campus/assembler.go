package campus

import (
	"fmt"
	"strings"

	"github.com/Vovarama1992/campus-ai-advisor/internal/ai"
)

const DefaultWindow = 6

var yearLabels = map[int]string{
	1: "First Year",
	2: "Second Year",
	3: "Third Year",
	4: "Final Year",
}

func YearLabel(year int) string {
	if l, ok := yearLabels[year]; ok {
		return l
	}
	return fmt.Sprintf("Year %d", year)
}

// BuildContext assembles system prompt + last window turns + new message.
// No I/O, inputs are not modified.
func BuildContext(newMessage string, profile *Profile, history []Turn, window int) ([]ai.Message, error) {
	text := strings.TrimSpace(newMessage)
	if text == "" {
		return nil, ErrInvalidInput
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	msgs := make([]ai.Message, 0, len(history)+2)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Text: BaseSystemPrompt + profileBlock(profile)})

	for _, t := range history {
		role := ai.RoleAssistant
		if t.Sender == SenderUser {
			role = ai.RoleUser
		}
		msgs = append(msgs, ai.Message{Role: role, Text: t.Text})
	}

	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Text: text})
	return msgs, nil
}

func profileBlock(p *Profile) string {
	if p == nil {
		return ""
	}

	var lines []string
	if p.Name != nil && strings.TrimSpace(*p.Name) != "" {
		lines = append(lines, "- Name: "+*p.Name)
	}
	if p.FieldOfStudy != nil && strings.TrimSpace(*p.FieldOfStudy) != "" {
		lines = append(lines, "- Major: "+*p.FieldOfStudy)
	}
	if p.AcademicYear != nil {
		lines = append(lines, "- Year: "+YearLabel(*p.AcademicYear))
	}
	if len(lines) == 0 {
		return ""
	}
	return profileHeader + "\n" + strings.Join(lines, "\n")
}
