package domain

// ChatMessage is the provider-agnostic chat message shape shared by the
// tutoring strategies and the LLM integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Chat roles used throughout the module.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
