package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entry1 := &activity.ActivityEntry{
		IntentID:     "i1",
		ActivityType: activity.TypeRecordUpdated,
		Source:       "nuevos-usuarios",
		Target:       "12",
		Outcome:      activity.OutcomeSucceeded,
		Summary:      "registro actualizado",
		Details:      `{"estado":"VALIDADO"}`,
		CreatedAt:    base,
	}
	entry2 := &activity.ActivityEntry{
		IntentID:     "i2",
		ActivityType: activity.TypeDatasetDeleted,
		Source:       "corte-fonasa",
		Outcome:      activity.OutcomeCancelled,
		Summary:      "Operación cancelada",
		CreatedAt:    base.Add(time.Minute),
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.IntentID, entries[0].IntentID)
	require.Equal(t, entry1.IntentID, entries[1].IntentID)
	require.Equal(t, "12", entries[1].Target)
	require.Equal(t, `{"estado":"VALIDADO"}`, entries[1].Details)
	require.Empty(t, entries[0].Target)
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	for i, outcome := range []activity.Outcome{activity.OutcomeSucceeded, activity.OutcomeFailed, activity.OutcomeSucceeded} {
		require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
			IntentID:     string(rune('a' + i)),
			ActivityType: activity.TypeBulkValidated,
			Source:       "nuevos-usuarios",
			Outcome:      outcome,
			Summary:      "lote",
		}))
	}
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		IntentID:     "z",
		ActivityType: activity.TypeRecordsIngested,
		Source:       "hp-trakcare",
		Outcome:      activity.OutcomeSucceeded,
		Summary:      "carga",
	}))

	failed := activity.OutcomeFailed
	entries, err := repo.List(ctx, activity.ListActivityOptions{Outcome: &failed})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	ingested := activity.TypeRecordsIngested
	entries, err = repo.List(ctx, activity.ListActivityOptions{ActivityType: &ingested})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hp-trakcare", entries[0].Source)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Source: "nuevos-usuarios", Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Source: "nuevos-usuarios", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestActivityRepository_RejectsUnknownOutcome(t *testing.T) {
	db := NewTestDB(t)
	repo := NewActivityRepository(db)

	err := repo.Log(context.Background(), &activity.ActivityEntry{
		IntentID:     "x",
		ActivityType: activity.TypeRecordUpdated,
		Source:       "nuevos-usuarios",
		Outcome:      activity.Outcome("maybe"),
		Summary:      "?",
	})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}
