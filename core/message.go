package core

// Message is one entry of the chat history a client sends with every turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Contents converts a history into model contents. Unknown roles are treated
// as user input and empty messages are dropped.
func Contents(history []Message) []Content {
	out := make([]Content, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}

		role := m.Role
		switch role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			role = RoleUser
		}

		out = append(out, NewTextContent(role, m.Content))
	}
	return out
}
