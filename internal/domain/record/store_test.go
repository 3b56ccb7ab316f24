package record_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/stretchr/testify/require"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

type fetchFunc func(ctx context.Context, src record.Source, q record.Query) (record.Dataset, error)

func (f fetchFunc) Fetch(ctx context.Context, src record.Source, q record.Query) (record.Dataset, error) {
	return f(ctx, src, q)
}

func dataset(rows ...record.Record) record.Dataset {
	return record.Dataset{Columns: []string{"id", "run"}, Rows: rows, Total: len(rows)}
}

func TestStore_LoadAndFind(t *testing.T) {
	ds := dataset(record.Record{"id": float64(1), "run": "12345678-5"}, record.Record{"id": float64(2), "run": "6000000-K"})
	store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(context.Context, record.Source, record.Query) (record.Dataset, error) {
		return ds, nil
	}), nil)

	require.False(t, store.IsLoaded())
	require.Equal(t, record.StateNeverLoaded, store.State())

	snap, err := store.Load(context.Background(), record.Query{})
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.Version)
	require.Len(t, snap.Rows(), 2)
	require.Equal(t, record.StateLoaded, store.State())

	rec, err := store.Find("2")
	require.NoError(t, err)
	require.Equal(t, "6000000-K", rec.Text("run"))

	rec["run"] = "mutated"
	again, err := store.Find("2")
	require.NoError(t, err)
	require.Equal(t, "6000000-K", again.Text("run"))

	_, err = store.Find("3")
	require.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestStore_EmptyDatasetIsLoaded(t *testing.T) {
	store := record.NewStore(record.CorteFonasa, fetchFunc(func(context.Context, record.Source, record.Query) (record.Dataset, error) {
		return record.Dataset{}, nil
	}), nil)

	_, err := store.Load(context.Background(), record.Query{})
	require.NoError(t, err)
	require.True(t, store.IsLoaded())
	require.Empty(t, store.Snapshot().Rows())
}

func TestStore_FailureKeepsPreviousContents(t *testing.T) {
	fail := false
	boom := errors.New("connection refused")
	store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(context.Context, record.Source, record.Query) (record.Dataset, error) {
		if fail {
			return record.Dataset{}, boom
		}
		return dataset(record.Record{"id": "a", "run": "1-9"}), nil
	}), nil)

	_, err := store.Load(context.Background(), record.Query{})
	require.NoError(t, err)

	fail = true
	_, err = store.Load(context.Background(), record.Query{})
	require.ErrorIs(t, err, boom)
	require.Equal(t, record.StateStale, store.State())
	require.ErrorIs(t, store.LastError(), boom)
	require.Len(t, store.Snapshot().Rows(), 1)
	require.Equal(t, uint64(1), store.Snapshot().Version)

	fail = false
	_, err = store.Load(context.Background(), record.Query{})
	require.NoError(t, err)
	require.NoError(t, store.LastError())
	require.Equal(t, record.StateLoaded, store.State())
}

func TestStore_FailureBeforeFirstLoad(t *testing.T) {
	store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(context.Context, record.Source, record.Query) (record.Dataset, error) {
		return record.Dataset{}, errors.New("500")
	}), nil)

	_, err := store.Load(context.Background(), record.Query{})
	require.Error(t, err)
	require.False(t, store.IsLoaded())
	require.Equal(t, record.StateNeverLoaded, store.State())
}

func TestStore_RejectsInvalidDatasets(t *testing.T) {
	cases := map[string]struct {
		ds   record.Dataset
		want error
	}{
		"missing column": {
			ds:   record.Dataset{Columns: []string{"id"}, Rows: []record.Record{{"id": "1"}}},
			want: record.ErrMissingColumn,
		},
		"missing key": {
			ds:   dataset(record.Record{"run": "1-9"}),
			want: record.ErrMissingKey,
		},
		"duplicate key": {
			ds:   dataset(record.Record{"id": "1", "run": "1-9"}, record.Record{"id": float64(1), "run": "2-7"}),
			want: record.ErrDuplicateKey,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(context.Context, record.Source, record.Query) (record.Dataset, error) {
				return tc.ds, nil
			}), nil)
			_, err := store.Load(context.Background(), record.Query{})
			require.ErrorIs(t, err, tc.want)
			require.False(t, store.IsLoaded())
		})
	}
}

func TestStore_LastRequestWins(t *testing.T) {
	gates := map[string]chan struct{}{"old": make(chan struct{}), "new": make(chan struct{})}
	store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(_ context.Context, _ record.Source, q record.Query) (record.Dataset, error) {
		tag := q.Params["tag"].(string)
		<-gates[tag]
		return dataset(record.Record{"id": tag, "run": "1-9"}), nil
	}), nil)

	ctx := context.Background()
	var wg sync.WaitGroup
	var oldErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, oldErr = store.Load(ctx, record.Query{Params: map[string]any{"tag": "old"}})
	}()
	require.Eventually(t, func() bool { return store.State() == record.StateLoading }, timeout, tick)

	newDone := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx, record.Query{Params: map[string]any{"tag": "new"}})
		newDone <- err
	}()

	close(gates["new"])
	require.NoError(t, <-newDone)
	close(gates["old"])
	wg.Wait()

	require.ErrorIs(t, oldErr, record.ErrSuperseded)
	_, err := store.Find("new")
	require.NoError(t, err)
	_, err = store.Find("old")
	require.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestStore_OlderSuccessAfterNewerFailureIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	unavailable := errors.New("503 service unavailable")
	store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(_ context.Context, _ record.Source, q record.Query) (record.Dataset, error) {
		if q.Params["tag"] == "new" {
			return record.Dataset{}, unavailable
		}
		<-release
		return dataset(record.Record{"id": "old", "run": "1-9"}), nil
	}), nil)

	ctx := context.Background()
	oldDone := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx, record.Query{Params: map[string]any{"tag": "old"}})
		oldDone <- err
	}()
	require.Eventually(t, func() bool { return store.State() == record.StateLoading }, timeout, tick)

	_, err := store.Load(ctx, record.Query{Params: map[string]any{"tag": "new"}})
	require.ErrorIs(t, err, unavailable)

	close(release)
	require.ErrorIs(t, <-oldDone, record.ErrSuperseded)

	require.False(t, store.IsLoaded())
	require.Empty(t, store.Snapshot().Rows())
	require.ErrorIs(t, store.LastError(), unavailable)
}

func TestStore_OlderSuccessAfterNewerFailureKeepsStale(t *testing.T) {
	release := make(chan struct{})
	unavailable := errors.New("503 service unavailable")
	store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(_ context.Context, _ record.Source, q record.Query) (record.Dataset, error) {
		switch q.Params["tag"] {
		case "new":
			return record.Dataset{}, unavailable
		case "old":
			<-release
		}
		return dataset(record.Record{"id": q.Params["tag"].(string), "run": "1-9"}), nil
	}), nil)

	ctx := context.Background()
	_, err := store.Load(ctx, record.Query{Params: map[string]any{"tag": "first"}})
	require.NoError(t, err)

	oldDone := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx, record.Query{Params: map[string]any{"tag": "old"}})
		oldDone <- err
	}()
	require.Eventually(t, func() bool { return store.State() == record.StateLoading }, timeout, tick)

	_, err = store.Load(ctx, record.Query{Params: map[string]any{"tag": "new"}})
	require.ErrorIs(t, err, unavailable)
	close(release)
	require.ErrorIs(t, <-oldDone, record.ErrSuperseded)

	require.Equal(t, record.StateStale, store.State())
	require.ErrorIs(t, store.LastError(), unavailable)
	_, err = store.Find("first")
	require.NoError(t, err)
	_, err = store.Find("old")
	require.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestStore_ClosedDropsResults(t *testing.T) {
	release := make(chan struct{})
	store := record.NewStore(record.NuevosUsuarios, fetchFunc(func(context.Context, record.Source, record.Query) (record.Dataset, error) {
		<-release
		return dataset(record.Record{"id": "1", "run": "1-9"}), nil
	}), nil)

	done := make(chan error, 1)
	go func() {
		_, err := store.Load(context.Background(), record.Query{})
		done <- err
	}()
	require.Eventually(t, func() bool { return store.State() == record.StateLoading }, timeout, tick)

	store.Close()
	close(release)
	require.ErrorIs(t, <-done, record.ErrClosed)
	require.False(t, store.IsLoaded())

	_, err := store.Load(context.Background(), record.Query{})
	require.ErrorIs(t, err, record.ErrClosed)
}

func TestQuery_Merge(t *testing.T) {
	q := record.Query{Params: map[string]any{"search": "perez", "all": false}, Limit: 20, Offset: 40}
	params := q.Merge(record.Validados)
	require.Equal(t, true, params["validated_only"])
	require.Equal(t, false, params["all"])
	require.Equal(t, "perez", params["search"])
	require.Equal(t, 20, params["limit"])
	require.Equal(t, 40, params["offset"])
}
