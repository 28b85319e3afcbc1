// Package transport defines outbound notification destinations.
//
// A Target is parsed once from configuration; a Publisher posts a
// Notification to it and can delete a previously posted one by id.
package transport

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidTarget = errors.New("transport: invalid target")
	// ErrNotFound means the message to delete no longer exists.
	ErrNotFound      = errors.New("transport: message not found")
	ErrNoPublisher   = errors.New("transport: no publisher for target kind")
	ErrEmptyResponse = errors.New("transport: response carried no message id")
)

type Kind string

const (
	KindDiscord  Kind = "discord"
	KindTelegram Kind = "telegram"
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Notification is a rendered, destination-agnostic message.
type Notification struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Timestamp   time.Time
}

// Publisher posts and removes notifications for one destination kind.
type Publisher interface {
	// Post returns the destination's message identifier.
	Post(ctx context.Context, to Target, n Notification) (string, error)
	// Delete removes a message. A message that is already gone yields ErrNotFound.
	Delete(ctx context.Context, to Target, messageID string) error
}
