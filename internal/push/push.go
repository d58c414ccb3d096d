// Package push delivers data-only messages to device tokens.
package push

import (
	"context"
	"errors"
	"unicode/utf8"
)

// ErrTransport wraps failures of a multicast call as a whole, as opposed to per-token failures.
var ErrTransport = errors.New("push transport failure")

// Message is the provider-agnostic data-only payload. Rendering is left to the client.
type Message struct {
	NotificationID string
	Screen         string
	ParamsJSON     string
	Title          string
	Body           string
	ImageURL       string
}

// Field bounds keep the data payload well under the provider's 4KB limit
const (
	MaxTitleLength    = 200
	MaxBodyLength     = 1000
	MaxImageURLLength = 1024
)

// Data flattens the message into the string map carried by the provider.
// Title and body are truncated and an oversized image URL is dropped.
func (m Message) Data() map[string]string {
	imageURL := m.ImageURL
	if len(imageURL) > MaxImageURLLength {
		imageURL = ""
	}
	return map[string]string{
		"notificationId": m.NotificationID,
		"screen":         m.Screen,
		"paramsJson":     m.ParamsJSON,
		"title":          truncate(m.Title, MaxTitleLength),
		"body":           truncate(m.Body, MaxBodyLength),
		"imageUrl":       imageURL,
	}
}

// truncate cuts s to at most max bytes on a rune boundary, marking the cut with "..."
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// TokenResult is the outcome for one token of a multicast
type TokenResult struct {
	Token     string
	MessageID string
	Err       error
	// InvalidToken marks tokens the provider reports as permanently unusable.
	InvalidToken bool
}

// Success reports whether the token accepted the message
func (r TokenResult) Success() bool {
	return r.Err == nil
}

// Sender performs a single multicast call. Results are returned in token order.
type Sender interface {
	SendMulticast(ctx context.Context, tokens []string, msg Message) ([]TokenResult, error)
}
