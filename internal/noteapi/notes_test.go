package noteapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openmined/notesync/internal/notecore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestClient_CreateNote_ParsesEntryEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"entry": map[string]any{"id": "srv-1", "tag": "tag-1", "folderId": "f1"},
			},
		})
	}))

	resp, err := c.CreateNote(context.Background(), "title", []byte("body"), "f1")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", resp.ID)
	assert.Equal(t, "tag-1", resp.Tag)
	assert.Equal(t, "f1", resp.FolderID)
}

func TestClient_CreateNote_FallsBackToTopLevelTag(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"tag":  "top-level-tag",
			"data": map[string]any{
				"entry": map[string]any{"id": "srv-1"},
			},
		})
	}))

	resp, err := c.CreateNote(context.Background(), "title", []byte("body"), "")
	require.NoError(t, err)
	assert.Equal(t, "top-level-tag", resp.Tag)
}

func TestClient_UpdateNote_FallsBackToExistingTagWhenServerOmitsOne(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]any{"entry": map[string]any{}}})
	}))

	resp, err := c.UpdateNote(context.Background(), "n1", "title", []byte("body"), "", "existing-tag")
	require.NoError(t, err)
	assert.Equal(t, "existing-tag", resp.Tag)
}

func TestClient_UpdateNote_ServerErrorClassifiesAsAuthExpired(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"code": 401, "message": "token expired"})
	}))

	_, err := c.UpdateNote(context.Background(), "n1", "title", []byte("body"), "", "tag")
	require.Error(t, err)

	var statusErr *notecore.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, notecore.ErrorAuthExpired, notecore.Classify(err))
}

func TestClient_DeleteNote_SendsTagAndPurgeAsQueryParams(t *testing.T) {
	var gotTag, gotPurge string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTag = r.URL.Query().Get("tag")
		gotPurge = r.URL.Query().Get("purge")
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.DeleteNote(context.Background(), "n1", "tag-1", true)
	require.NoError(t, err)
	assert.Equal(t, "tag-1", gotTag)
	assert.Equal(t, "true", gotPurge)
}
