package chatstate

import (
	"sync"

	"yagptchat/internal/models"
)

// Reconciler tracks the single optimistically displayed message that has
// been handed to the backend but not yet observed in the authoritative
// sequence. Timestamps are the reconciliation key: the pending message
// is dropped from display (and then cleared) as soon as an authoritative
// message carries an equal timestamp.
type Reconciler struct {
	mu      sync.Mutex
	pending *models.Message
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// SetPending records the message awaiting confirmation, replacing any
// previous one.
func (r *Reconciler) SetPending(msg models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = &msg
}

// Pending returns the message awaiting confirmation, if any.
func (r *Reconciler) Pending() (models.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return models.Message{}, false
	}
	return *r.pending, true
}

// Clear forgets the pending message without confirmation.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
}

// Display merges the pending message into a copy of the authoritative
// sequence and returns it sorted ascending by timestamp. The pending
// message is suppressed when any authoritative message carries an equal
// timestamp, so it is never shown twice.
func (r *Reconciler) Display(authoritative []models.Message) []models.Message {
	merged := make([]models.Message, len(authoritative))
	copy(merged, authoritative)

	r.mu.Lock()
	pending := r.pending
	r.mu.Unlock()

	if pending != nil && !containsTimestamp(authoritative, *pending) {
		merged = append(merged, *pending)
	}

	models.SortMessagesByTimestamp(merged)
	return merged
}

// Observe clears the pending message once its timestamp appears in the
// authoritative sequence.
func (r *Reconciler) Observe(authoritative []models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil && containsTimestamp(authoritative, *r.pending) {
		r.pending = nil
	}
}

func containsTimestamp(messages []models.Message, msg models.Message) bool {
	for i := range messages {
		if messages[i].Timestamp.Equal(msg.Timestamp) {
			return true
		}
	}
	return false
}
