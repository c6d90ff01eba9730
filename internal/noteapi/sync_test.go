package noteapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchPage_ParsesChangedIDsAndCursor(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "T1", r.URL.Query().Get("syncTag"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"syncTag":          "T2",
				"changedNoteIds":   []string{"n1", "n2"},
				"changedFolderIds": []string{"f1"},
			},
		})
	}))

	resp, err := c.FetchPage(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "T2", resp.SyncTag)
	assert.Equal(t, []string{"n1", "n2"}, resp.ChangedNoteIDs)
	assert.Equal(t, []string{"f1"}, resp.ChangedFolderIDs)
}

func TestClient_DownloadAttachment_ReturnsRawBytes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notes/n1/attachments/a1", r.URL.Path)
		w.Write([]byte("raw-bytes"))
	}))

	data, err := c.DownloadAttachment(context.Background(), "n1", "a1")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-bytes"), data)
}
