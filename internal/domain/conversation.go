package domain

// Conversation holds a replaceable system instruction and the transcript of
// turns that follows it. Keeping the instruction outside the turn slice means
// swapping the active instruction mid-conversation never touches the
// transcript.
type Conversation struct {
	instruction string
	turns       []ChatMessage
}

// NewConversation creates a conversation with the given system instruction
// and optional initial turns.
func NewConversation(instruction string, turns ...ChatMessage) *Conversation {
	return &Conversation{instruction: instruction, turns: turns}
}

// SetInstruction replaces the active system instruction.
func (c *Conversation) SetInstruction(instruction string) {
	c.instruction = instruction
}

// Append adds a turn to the transcript.
func (c *Conversation) Append(role, content string) {
	c.turns = append(c.turns, ChatMessage{Role: role, Content: content})
}

// Len counts the system instruction plus every turn, matching the entry
// count of the materialized message sequence.
func (c *Conversation) Len() int {
	return 1 + len(c.turns)
}

// Turns returns the transcript without the system instruction.
func (c *Conversation) Turns() []ChatMessage {
	return c.turns
}

// Messages materializes the instruction-first message sequence for dispatch.
func (c *Conversation) Messages() []ChatMessage {
	msgs := make([]ChatMessage, 0, len(c.turns)+1)
	msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: c.instruction})
	return append(msgs, c.turns...)
}
