package chatstate

import (
	"testing"
	"time"

	"yagptchat/internal/models"

	"github.com/google/uuid"
)

func msgAt(role, content string, ts time.Time) models.Message {
	return models.Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
}

func TestDisplayAppendsPendingAndSorts(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	authoritative := []models.Message{
		msgAt(models.RoleAssistant, "second", base.Add(2*time.Second)),
		msgAt(models.RoleUser, "first", base),
	}
	pending := msgAt(models.RoleUser, "pending", base.Add(time.Second))

	r := NewReconciler()
	r.SetPending(pending)

	got := r.Display(authoritative)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	want := []string{"first", "pending", "second"}
	for i, content := range want {
		if got[i].Content != content {
			t.Errorf("position %d: expected %q, got %q", i, content, got[i].Content)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Errorf("messages out of order at index %d", i)
		}
	}
}

func TestDisplaySuppressesPendingOnEqualTimestamp(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pending := msgAt(models.RoleUser, "hello", ts)
	// Same timestamp, different identity: the server's persisted copy.
	authoritative := []models.Message{msgAt(models.RoleUser, "hello", ts)}

	r := NewReconciler()
	r.SetPending(pending)

	got := r.Display(authoritative)
	if len(got) != 1 {
		t.Fatalf("pending message displayed alongside its persisted copy: %d messages", len(got))
	}
}

func TestDisplayWithoutPending(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	authoritative := []models.Message{msgAt(models.RoleUser, "hi", ts)}

	r := NewReconciler()
	got := r.Display(authoritative)
	if len(got) != 1 || got[0].Content != "hi" {
		t.Fatalf("unexpected display result: %+v", got)
	}
}

func TestObserveClearsPendingOnTimestampMatch(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pending := msgAt(models.RoleUser, "hello", ts)

	r := NewReconciler()
	r.SetPending(pending)

	// Not yet in the authoritative list: pending survives.
	r.Observe([]models.Message{msgAt(models.RoleUser, "other", ts.Add(time.Minute))})
	if _, ok := r.Pending(); !ok {
		t.Fatal("pending cleared before its timestamp appeared")
	}

	r.Observe([]models.Message{msgAt(models.RoleUser, "hello", ts)})
	if _, ok := r.Pending(); ok {
		t.Fatal("pending not cleared after its timestamp appeared")
	}
}

func TestSetPendingReplacesPrevious(t *testing.T) {
	r := NewReconciler()
	r.SetPending(msgAt(models.RoleUser, "old", time.Now()))
	r.SetPending(msgAt(models.RoleUser, "new", time.Now()))

	got, ok := r.Pending()
	if !ok || got.Content != "new" {
		t.Fatalf("expected replacement pending message, got %+v ok=%v", got, ok)
	}
}
