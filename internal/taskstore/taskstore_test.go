package taskstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*taskstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return taskstore.New(rdb, zerolog.Nop()), mr
}

func TestPutGetTask(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	task := models.NewTask(uuid.New(), models.KindSingle, "3/8 BSPP fitting", 5)
	require.NoError(t, store.PutTask(ctx, task))

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, task.Input, got.Input)
	require.Equal(t, models.StatusProcessing, got.Status)

	mr.FastForward(taskstore.TaskTTL + time.Second)
	missing, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestGetTaskMissingIsNilNotError(t *testing.T) {
	store, _ := newTestStore(t)
	got, err := store.GetTask(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTaskTTLSlidesOnRead(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	task := models.NewTask(uuid.New(), models.KindSingle, "query", 0)
	require.NoError(t, store.PutTask(ctx, task))

	mr.FastForward(50 * time.Minute)
	_, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)

	ttl := mr.TTL(taskKeyFor(task.ID))
	require.Greater(t, ttl, 10*time.Minute, "a read within the ttl window should extend it")
}

func TestCachedSearchRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	cs := models.CachedSearch{
		ResultPayload: models.TaskResult{Query: "1/2 BSPP", MatchCount: 2},
		CachedAt:      time.Now().Unix(),
		TTL:           int64(taskstore.SearchTTL.Seconds()),
	}
	require.NoError(t, store.PutCachedSearch(ctx, "fp-abc123", cs))

	got, err := store.GetCachedSearch(ctx, "fp-abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2, got.ResultPayload.MatchCount)

	miss, err := store.GetCachedSearch(ctx, "fp-does-not-exist")
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestArtifactRef(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	empty, err := store.GetArtifactRef(ctx, id)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, store.PutArtifactRef(ctx, id, "artifacts/"+id.String()+".csv"))
	ref, err := store.GetArtifactRef(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "artifacts/"+id.String()+".csv", ref)
}

func TestDeleteTask(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	task := models.NewTask(uuid.New(), models.KindSingle, "query", 0)
	require.NoError(t, store.PutTask(ctx, task))
	require.NoError(t, store.DeleteTask(ctx, task.ID))

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFailedQueryLedgerAppendsAndTrims(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := taskstore.FailedQueryEntry{
			TaskID: uuid.New(),
			Query:  "unrecognized part",
			Kind:   ec.KindClassificationUnknown,
			At:     time.Now().Unix(),
		}
		require.NoError(t, store.RecordFailedQuery(ctx, entry))
	}

	entries, err := store.FailedQueries(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, ec.KindClassificationUnknown, entries[0].Kind)
}

func TestHealth(t *testing.T) {
	store, mr := newTestStore(t)
	h := store.Health(context.Background())
	require.Equal(t, "healthy", h.Status)

	mr.Close()
	h = store.Health(context.Background())
	require.Equal(t, "unhealthy", h.Status)
}

func taskKeyFor(id uuid.UUID) string {
	return "task:" + id.String()
}
