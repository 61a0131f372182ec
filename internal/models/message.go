package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Message roles. The completion endpoint only understands these two plus
// "system", which never appears in stored conversations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message. The timestamp doubles as the
// display order and the reconciliation key; the ID exists so that two
// messages landing on the same timestamp tick stay distinct in storage.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SortMessagesByTimestamp orders messages ascending by timestamp, in place.
// The sort is stable so equal timestamps keep their insertion order.
func SortMessagesByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
