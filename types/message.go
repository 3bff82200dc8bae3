// Package types provides core types shared across the agentscaffold packages.
// This package has ZERO dependencies on other agentscaffold packages to avoid circular imports.
package types

import "time"

// MessageType tags the kind of a conversation message.
type MessageType string

const (
	MessageHuman  MessageType = "human"
	MessageAI     MessageType = "ai"
	MessageSystem MessageType = "system"
	MessageTool   MessageType = "tool"
)

// Message represents a conversation message.
type Message struct {
	Type      MessageType    `json:"type"`
	Content   string         `json:"content"`
	Name      string         `json:"name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given kind and content.
func NewMessage(kind MessageType, content string) Message {
	return Message{
		Type:      kind,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewHumanMessage creates a new human message.
func NewHumanMessage(content string) Message {
	return NewMessage(MessageHuman, content)
}

// NewAIMessage creates a new AI message.
func NewAIMessage(content string) Message {
	return NewMessage(MessageAI, content)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(MessageSystem, content)
}

// NewToolMessage creates a new tool result message attributed to name.
func NewToolMessage(name, content string) Message {
	m := NewMessage(MessageTool, content)
	m.Name = name
	return m
}

// WithName sets the participant name.
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}

// WithMetadata adds metadata to the message.
func (m Message) WithMetadata(metadata map[string]any) Message {
	m.Metadata = metadata
	return m
}

// CloneMessages returns a copy of msgs that shares no backing array with it.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
