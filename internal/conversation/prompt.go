package conversation

import (
	"fmt"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// buildPrompt assembles the ordered message sequence per spec.md §4.3: a
// system message (personality + retrieved knowledge + footer), up to N
// prior interactions chronologically, then the new user message (with
// multimodal parts if images were supplied).
func buildPrompt(p umebot.Personality, kb *KnowledgeBase, userInput, robotName string, history []umebot.Interaction, images []string) []umebot.Message {
	messages := make([]umebot.Message, 0, len(history)+2)

	messages = append(messages, umebot.Message{Role: "system", Content: systemMessage(p, kb, userInput, robotName)})

	for _, h := range history {
		role := string(h.Role)
		if role == string(umebot.RoleSystem) {
			continue // the system message above supersedes any persisted system turns
		}
		messages = append(messages, umebot.Message{Role: role, Content: h.Content})
	}

	if len(images) > 0 {
		parts := make([]umebot.ContentPart, 0, len(images)+1)
		parts = append(parts, umebot.ContentPart{Type: "text", Text: userInput})
		for _, img := range images {
			parts = append(parts, umebot.ContentPart{Type: "image_url", ImageURL: img})
		}
		messages = append(messages, umebot.Message{Role: "user", Content: userInput, Parts: parts})
	} else {
		messages = append(messages, umebot.Message{Role: "user", Content: userInput})
	}

	return messages
}

func systemMessage(p umebot.Personality, kb *KnowledgeBase, userInput, robotName string) string {
	name := robotName
	if p.RobotName != "" {
		name = p.RobotName
	}

	msg := p.SystemPrompt
	if msg == "" {
		msg = "You are a helpful robot assistant."
	}

	if kb != nil {
		if snippets := kb.Retrieve(userInput, 3); len(snippets) > 0 {
			msg += "\n\nRelevant context:\n"
			for _, s := range snippets {
				msg += "- " + s + "\n"
			}
		}
	}

	msg += fmt.Sprintf(
		"\n\nYou are %s. The current date and time is %s. Intersperse animation tags of the form ^runTag(name) where natural in your spoken response.",
		name, time.Now().Format(time.RFC1123),
	)
	return msg
}
