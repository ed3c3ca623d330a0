package notify

import "context"

// Message is one user-addressed notification. Delivery is handled by an
// external chat collaborator; this package only hands messages over.
type Message struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
