package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ChiaYuChang/hydrosearch/internal/httpapi"
	"github.com/ChiaYuChang/hydrosearch/internal/llmgateway"
	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/ChiaYuChang/hydrosearch/internal/producer"
	"github.com/ChiaYuChang/hydrosearch/internal/statusapi"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httpapi.Server, *taskstore.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := taskstore.New(rdb, zerolog.Nop())

	// Broker is nil: only endpoints that never reach Producer.Broker.Publish
	// (validation failures, cache short-circuit, read-only endpoints) are
	// exercised here.
	p := producer.New(store, nil, zerolog.Nop(), true)
	sa := statusapi.New(store, zerolog.Nop())
	return httpapi.New(p, sa, store, nil, zerolog.Nop()), store
}

func TestHandleCreateRejectsEmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewRouter()

	body, _ := json.Marshal(map[string]any{"query": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetTaskMalformedID(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/task/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetTaskNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/task/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetTaskReturnsStoredStatus(t *testing.T) {
	srv, store := newTestServer(t)
	mux := srv.NewRouter()

	id := uuid.New()
	task := models.NewTask(id, models.KindSingle, "3/8 BSP fitting", 0)
	task.Status = models.StatusCompleted
	task.Result = &models.TaskResult{MatchCount: 1}
	require.NoError(t, store.PutTask(context.Background(), task))

	req := httptest.NewRequest(http.MethodGet, "/api/task/"+id.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "completed", got["status"])
}

func TestHandleCancelTransitionsProcessingTask(t *testing.T) {
	srv, store := newTestServer(t)
	mux := srv.NewRouter()

	id := uuid.New()
	task := models.NewTask(id, models.KindSingle, "3/8 BSP fitting", 0)
	require.NoError(t, store.PutTask(context.Background(), task))

	req := httptest.NewRequest(http.MethodPost, "/api/task/"+id.String()+"/cancel", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "canceled", got["status"])
}

func TestHandleDownloadRejectsIncompleteTask(t *testing.T) {
	srv, store := newTestServer(t)
	mux := srv.NewRouter()

	id := uuid.New()
	task := models.NewTask(id, models.KindSingle, "3/8 BSP fitting", 0)
	require.NoError(t, store.PutTask(context.Background(), task))

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+id.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthReportsDegradedWithoutBroker(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "degraded", got["status"])
}

func TestHandleCreateCacheShortCircuitNeverTouchesBroker(t *testing.T) {
	srv, store := newTestServer(t)
	mux := srv.NewRouter()

	query := "3/8 BSP fitting"
	fp := llmgateway.Fingerprint(query)
	require.NoError(t, store.PutCachedSearch(context.Background(), fp, models.CachedSearch{
		ResultPayload: models.TaskResult{Query: query, MatchCount: 1},
	}))

	body, _ := json.Marshal(map[string]any{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/api/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	// Broker is nil on this Server; a 200 here proves the cache
	// short-circuit returned before Producer ever reached Broker.Publish.
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "completed", got["status"])
}
