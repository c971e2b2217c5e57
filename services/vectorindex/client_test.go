package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services"
)

func testClient(serverURL string) *Client {
	return NewClient(config.VectorStoreConfig{
		URL:        serverURL,
		Collection: "test_chunks",
		Dimension:  4,
		Timeout:    2 * time.Second,
	}, zap.NewNop())
}

func TestUpsert_SendsDeterministicPointIDs(t *testing.T) {
	var captured struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL)
	chunk := models.Chunk{DocumentID: "doc-1", SectionHeading: "care", Text: "wash cold", Offset: 462}

	require.NoError(t, client.Upsert(context.Background(), []models.Chunk{chunk}, [][]float32{{0.1, 0.2, 0.3, 0.4}}))
	require.Len(t, captured.Points, 1)
	assert.Equal(t, pointID(chunk), captured.Points[0].ID)
	assert.Equal(t, "doc-1", captured.Points[0].Payload["document_id"])
	assert.Equal(t, float64(462), captured.Points[0].Payload["offset"])

	// Same key, same id: re-ingest replaces instead of duplicating.
	again := models.Chunk{DocumentID: "doc-1", Offset: 462, Text: "different text"}
	assert.Equal(t, pointID(chunk), pointID(again))
}

func TestUpsert_LengthMismatch(t *testing.T) {
	client := testClient("http://localhost:0")
	err := client.Upsert(context.Background(), []models.Chunk{{DocumentID: "d"}}, nil)
	require.Error(t, err)
	assert.True(t, services.IsInternalError(err))
}

func TestQuery_ParsesScoredChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(2), req["limit"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.91, "payload": map[string]any{"document_id": "doc-1", "text": "organic cotton", "offset": 0}},
				{"score": 0.42, "payload": map[string]any{"document_id": "doc-2", "text": "denim care", "offset": 462}},
			},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)
	results, err := client.Query(context.Background(), []float32{1, 0, 0, 0}, 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-1", results[0].Chunk.DocumentID)
	assert.Equal(t, 0.91, results[0].Score)
	assert.Equal(t, 462, results[1].Chunk.Offset)
}

func TestQuery_AppliesDefaultLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(DefaultQueryLimit), req["limit"])
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Query(context.Background(), []float32{1, 0, 0, 0}, 0)
	require.NoError(t, err)
}

func TestQuery_UnreachableStore(t *testing.T) {
	client := testClient("http://127.0.0.1:1")

	_, err := client.Query(context.Background(), []float32{1, 0, 0, 0}, 3)
	require.Error(t, err)
	assert.True(t, services.IsIndexUnavailableError(err))
}

func TestPing_SurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, services.IsIndexUnavailableError(err))
}
