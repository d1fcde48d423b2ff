package alert_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/alert"
)

func seedAlerts(t *testing.T, repo *alert.InMemoryRepository, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Insert(context.Background(), &alert.Alert{
			ID:        fmt.Sprintf("alr_%s_%03d", userID, i),
			UserID:    userID,
			Kind:      alert.KindThreshold,
			Message:   alert.ThresholdMessage(i),
			AQILevel:  i,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestInMemoryRepository_ListNewestFirstCapped(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	seedAlerts(t, repo, "usr_1", 60)
	seedAlerts(t, repo, "usr_2", 2)

	alerts, err := repo.List(context.Background(), "usr_1", 0)
	require.NoError(t, err)
	require.Len(t, alerts, alert.MaxListLimit)
	assert.Equal(t, "alr_usr_1_059", alerts[0].ID)
	for i := 1; i < len(alerts); i++ {
		assert.True(t, alerts[i-1].CreatedAt.After(alerts[i].CreatedAt))
	}

	alerts, err = repo.List(context.Background(), "usr_1", 5)
	require.NoError(t, err)
	assert.Len(t, alerts, 5)
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	seedAlerts(t, repo, "usr_1", 1)

	alerts, err := repo.List(context.Background(), "usr_1", 10)
	require.NoError(t, err)
	alerts[0].IsRead = true

	unread, err := repo.CountUnread(context.Background(), "usr_1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestInMemoryRepository_MarkRead(t *testing.T) {
	ctx := context.Background()
	repo := alert.NewInMemoryRepository()
	seedAlerts(t, repo, "usr_1", 2)

	require.NoError(t, repo.MarkRead(ctx, "usr_1", "alr_usr_1_000"))
	// Marking twice is fine and never reverts.
	require.NoError(t, repo.MarkRead(ctx, "usr_1", "alr_usr_1_000"))

	assert.ErrorIs(t, repo.MarkRead(ctx, "usr_2", "alr_usr_1_001"), alert.ErrAlertNotFound)
	assert.ErrorIs(t, repo.MarkRead(ctx, "usr_1", "alr_missing"), alert.ErrAlertNotFound)

	unread, err := repo.CountUnread(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestInMemoryRepository_MarkAllReadIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := alert.NewInMemoryRepository()
	seedAlerts(t, repo, "usr_1", 4)
	seedAlerts(t, repo, "usr_2", 3)
	require.NoError(t, repo.MarkRead(ctx, "usr_1", "alr_usr_1_002"))

	n, err := repo.MarkAllRead(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.MarkAllRead(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	alerts, err := repo.List(ctx, "usr_1", 10)
	require.NoError(t, err)
	for _, a := range alerts {
		assert.True(t, a.IsRead)
	}

	unread, err := repo.CountUnread(ctx, "usr_2")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)
}

func TestInMemoryRepository_HasRecentForCity(t *testing.T) {
	ctx := context.Background()
	repo := alert.NewInMemoryRepository()
	require.NoError(t, repo.Insert(ctx, &alert.Alert{ID: "alr_1", UserID: "usr_1", City: "Lahore", CreatedAt: testNow}))

	ok, err := repo.HasRecentForCity(ctx, "usr_1", "LAHORE", testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasRecentForCity(ctx, "usr_1", "Lahore", testNow.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.HasRecentForCity(ctx, "usr_1", "Karachi", testNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}
