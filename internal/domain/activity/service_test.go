package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		ActivityType: activity.TypeRecordUpdated,
		Source:       "nuevos-usuarios",
		Target:       "12",
		Outcome:      activity.OutcomeSucceeded,
		Summary:      "updated",
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListActivityOptions{Source: "nuevos-usuarios", Limit: 50}).Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{Source: "nuevos-usuarios"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_LogValidation(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.LogActivity(context.Background(), nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), &activity.ActivityEntry{ActivityType: activity.TypeDatasetDeleted}), activity.ErrInvalidInput)
}

func TestActivityService_ListError(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	boom := errors.New("boom")
	repo.On("List", ctx, activity.ListActivityOptions{Limit: 5}).Return(nil, boom)

	svc := activity.NewService(repo, nil)
	_, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{Limit: 5})
	require.ErrorIs(t, err, boom)
}
