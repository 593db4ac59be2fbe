package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversational turn. History is ordered oldest first.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrInvalidHistory = errors.New("invalid conversation history")
)

func allowedRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ValidateContent rejects content that is blank after trimming whitespace.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// ParseHistory decodes a caller-supplied history array. Every entry must be
// an object carrying string-typed "role" and "content" with an allowed role;
// any structural deviation invalidates the whole history. A missing or null
// history is treated as empty.
func ParseHistory(raw json.RawMessage) ([]Message, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []Message{}, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, ErrInvalidHistory
	}
	history := make([]Message, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			return nil, ErrInvalidHistory
		}
		rawRole, ok := fields["role"]
		if !ok {
			return nil, ErrInvalidHistory
		}
		rawContent, ok := fields["content"]
		if !ok {
			return nil, ErrInvalidHistory
		}
		var role string
		if err := json.Unmarshal(rawRole, &role); err != nil {
			return nil, ErrInvalidHistory
		}
		var content string
		if err := json.Unmarshal(rawContent, &content); err != nil {
			return nil, ErrInvalidHistory
		}
		if !allowedRole(Role(role)) {
			return nil, fmt.Errorf("%w: role %q not allowed", ErrInvalidHistory, role)
		}
		history = append(history, Message{Role: Role(role), Content: content})
	}
	return history, nil
}

// ValidateHistory checks an already-decoded history against the same rules
// ParseHistory enforces on raw JSON.
func ValidateHistory(history []Message) error {
	for _, msg := range history {
		if !allowedRole(msg.Role) {
			return fmt.Errorf("%w: role %q not allowed", ErrInvalidHistory, msg.Role)
		}
	}
	return nil
}
