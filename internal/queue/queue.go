// Package queue defines the embedding job message and the transport contracts
// used by the API (publisher) and the worker (consumer).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypeEmbedResearchInterest is the only message type the worker handles.
const TypeEmbedResearchInterest = "embed_research_interest"

// Message is the JSON body carried by every transport.
type Message struct {
	Type               string `json:"type"`
	JobID              string `json:"job_id"`
	Term               string `json:"term"`
	ClientEnqueuedAtMs int64  `json:"client_enqueued_at_ms"`
}

// Handler processes one delivered message. Transports acknowledge the
// message after Handler returns, whatever the outcome.
type Handler func(ctx context.Context, msg Message)

// Publisher sends messages to the queue.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Consumer delivers messages to h until ctx is canceled.
type Consumer interface {
	Consume(ctx context.Context, h Handler) error
}

// Encode marshals a message to its wire form.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Decode parses the wire form.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}
