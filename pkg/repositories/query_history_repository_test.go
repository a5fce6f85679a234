//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/testhelpers"
)

// historyTestContext holds test dependencies for query history repository tests.
type historyTestContext struct {
	t     *testing.T
	appDB *testhelpers.AppDB
	repo  QueryHistoryRepository
}

func setupHistoryTest(t *testing.T) *historyTestContext {
	appDB := testhelpers.GetAppDB(t)
	return &historyTestContext{
		t:     t,
		appDB: appDB,
		repo:  NewQueryHistoryRepository(appDB.DB),
	}
}

// cleanup removes all history rows so tests start from an empty table.
func (tc *historyTestContext) cleanup() {
	tc.t.Helper()
	_, _ = tc.appDB.DB.Exec(context.Background(), "DELETE FROM query_history")
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// createEntry inserts a history entry with the given session, outcome, and age.
func (tc *historyTestContext) createEntry(ctx context.Context, sessionID, outcome string, age time.Duration) *models.QueryHistoryEntry {
	tc.t.Helper()
	entry := &models.QueryHistoryEntry{
		SessionID: sessionID,
		Question:  "how many orders shipped last week?",
		Outcome:   outcome,
		CreatedAt: time.Now().Add(-age),
	}
	if err := tc.repo.Create(ctx, entry); err != nil {
		tc.t.Fatalf("failed to create test entry: %v", err)
	}
	return entry
}

func TestQueryHistoryRepository_Create(t *testing.T) {
	tc := setupHistoryTest(t)
	tc.cleanup()
	defer tc.cleanup()

	ctx := context.Background()
	entry := &models.QueryHistoryEntry{
		SessionID:         "session-1",
		Question:          "total revenue per customer?",
		RewrittenQuestion: strPtr("total order amount per customer"),
		SQL:               strPtr("SELECT c.name, SUM(o.total) FROM orders o JOIN customers c ON c.id = o.customer_id GROUP BY c.name"),
		Explanation:       strPtr("Sums order totals grouped by customer."),
		Confidence:        0.91,
		Outcome:           models.AskOutcomeAnswered,
		RowCount:          intPtr(3),
		DurationMs:        intPtr(42),
		FromCache:         false,
		ContextUsed:       true,
	}

	if err := tc.repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if entry.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	// Verify by listing
	entries, total, err := tc.repo.List(ctx, models.QueryHistoryFilters{SessionID: "session-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.ID != entry.ID {
		t.Errorf("expected ID %s, got %s", entry.ID, got.ID)
	}
	if got.RewrittenQuestion == nil || *got.RewrittenQuestion != "total order amount per customer" {
		t.Errorf("rewritten question did not round-trip: %v", got.RewrittenQuestion)
	}
	if got.SQL == nil || *got.SQL != *entry.SQL {
		t.Errorf("sql did not round-trip: %v", got.SQL)
	}
	if got.Confidence != 0.91 {
		t.Errorf("expected confidence 0.91, got %f", got.Confidence)
	}
	if got.RowCount == nil || *got.RowCount != 3 {
		t.Errorf("row count did not round-trip: %v", got.RowCount)
	}
	if !got.ContextUsed {
		t.Error("expected context_used to be true")
	}
}

func TestQueryHistoryRepository_Create_MinimalFields(t *testing.T) {
	tc := setupHistoryTest(t)
	tc.cleanup()
	defer tc.cleanup()

	ctx := context.Background()

	// A rejected ask has no SQL, explanation, or execution details.
	entry := &models.QueryHistoryEntry{
		Question: "drop the orders table",
		Outcome:  models.AskOutcomeRejected,
	}

	if err := tc.repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entries, _, err := tc.repo.List(ctx, models.QueryHistoryFilters{Outcome: models.AskOutcomeRejected})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].SQL != nil {
		t.Errorf("expected nil SQL, got %v", *entries[0].SQL)
	}
	if entries[0].RowCount != nil {
		t.Errorf("expected nil row count, got %v", *entries[0].RowCount)
	}
}

func TestQueryHistoryRepository_List_Filters(t *testing.T) {
	tc := setupHistoryTest(t)
	tc.cleanup()
	defer tc.cleanup()

	ctx := context.Background()
	tc.createEntry(ctx, "session-a", models.AskOutcomeAnswered, 3*time.Hour)
	tc.createEntry(ctx, "session-a", models.AskOutcomeFailed, 2*time.Hour)
	tc.createEntry(ctx, "session-b", models.AskOutcomeAnswered, 1*time.Hour)
	tc.createEntry(ctx, "session-b", models.AskOutcomeAnswered, 48*time.Hour)

	t.Run("by session", func(t *testing.T) {
		entries, total, err := tc.repo.List(ctx, models.QueryHistoryFilters{SessionID: "session-a"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 2 || len(entries) != 2 {
			t.Errorf("expected 2 entries for session-a, got total=%d len=%d", total, len(entries))
		}
	})

	t.Run("by outcome", func(t *testing.T) {
		entries, total, err := tc.repo.List(ctx, models.QueryHistoryFilters{Outcome: models.AskOutcomeFailed})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 1 || len(entries) != 1 {
			t.Errorf("expected 1 failed entry, got total=%d len=%d", total, len(entries))
		}
	})

	t.Run("by since", func(t *testing.T) {
		since := time.Now().Add(-24 * time.Hour)
		_, total, err := tc.repo.List(ctx, models.QueryHistoryFilters{Since: &since})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 3 {
			t.Errorf("expected 3 entries in the last day, got %d", total)
		}
	})

	t.Run("combined", func(t *testing.T) {
		since := time.Now().Add(-24 * time.Hour)
		_, total, err := tc.repo.List(ctx, models.QueryHistoryFilters{
			SessionID: "session-b",
			Outcome:   models.AskOutcomeAnswered,
			Since:     &since,
		})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 1 {
			t.Errorf("expected 1 entry, got %d", total)
		}
	})
}

func TestQueryHistoryRepository_List_OrderAndLimit(t *testing.T) {
	tc := setupHistoryTest(t)
	tc.cleanup()
	defer tc.cleanup()

	ctx := context.Background()
	oldest := tc.createEntry(ctx, "session-o", models.AskOutcomeAnswered, 3*time.Hour)
	middle := tc.createEntry(ctx, "session-o", models.AskOutcomeAnswered, 2*time.Hour)
	newest := tc.createEntry(ctx, "session-o", models.AskOutcomeAnswered, 1*time.Hour)

	entries, total, err := tc.repo.List(ctx, models.QueryHistoryFilters{SessionID: "session-o", Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	// Total reflects all matches; the page honors the limit, newest first.
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != newest.ID {
		t.Errorf("expected newest entry first, got %s", entries[0].ID)
	}
	if entries[1].ID != middle.ID {
		t.Errorf("expected middle entry second, got %s", entries[1].ID)
	}
	_ = oldest
}

func TestQueryHistoryRepository_DeleteOlderThan(t *testing.T) {
	tc := setupHistoryTest(t)
	tc.cleanup()
	defer tc.cleanup()

	ctx := context.Background()
	tc.createEntry(ctx, "session-r", models.AskOutcomeAnswered, 72*time.Hour)
	tc.createEntry(ctx, "session-r", models.AskOutcomeAnswered, 50*time.Hour)
	kept := tc.createEntry(ctx, "session-r", models.AskOutcomeAnswered, 1*time.Hour)

	deleted, err := tc.repo.DeleteOlderThan(ctx, time.Now().Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	entries, total, err := tc.repo.List(ctx, models.QueryHistoryFilters{SessionID: "session-r"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got total=%d len=%d", total, len(entries))
	}
	if entries[0].ID != kept.ID {
		t.Errorf("wrong entry survived: %s", entries[0].ID)
	}
}
