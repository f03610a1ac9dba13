package delivery

import "context"

// MessageRef identifies a delivered platform message. It is ephemeral:
// logged for forensics, never persisted.
type MessageRef struct {
	MessageID int
	ChatID    int64
}

// Messenger is the external delivery API, one method per payload shape.
// The production implementation lives in internal/telegram; tests use a
// scripted fake.
type Messenger interface {
	SendText(ctx context.Context, text string) (MessageRef, error)
	SendPhotoURL(ctx context.Context, photoURL, caption string) (MessageRef, error)
	SendPhotoData(ctx context.Context, data []byte, caption string) (MessageRef, error)
}

// Representation is the message shape chosen for one insight, ordered
// richest first; delivery falls back toward RepText.
type Representation int

const (
	RepComposite Representation = iota
	RepPhoto
	RepText
)

func (r Representation) String() string {
	switch r {
	case RepComposite:
		return "composite"
	case RepPhoto:
		return "photo"
	case RepText:
		return "text"
	default:
		return "unknown"
	}
}

// Receipt reports a successful delivery, including the background that
// was actually used so it can be recorded with the processed entry.
type Receipt struct {
	Representation  Representation
	Ref             MessageRef
	BackgroundKind  string // "image", "color", or ""
	BackgroundValue string
}
