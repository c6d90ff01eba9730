package noteapi

import (
	"context"
	"fmt"

	"github.com/openmined/notesync/internal/notecore"
)

// DownloadAttachment implements notecore.RemoteAPIPort. Binary content
// codecs are out of scope (§1 Non-goals); this returns the raw bytes the
// caller's attachment cache persists.
func (c *Client) DownloadAttachment(ctx context.Context, noteID, attachmentID string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/%s/attachments/%s", pathNotes, noteID, attachmentID))
	if werr := wrapError(res, err, "download attachment"); werr != nil {
		return nil, werr
	}
	return res.Bytes(), nil
}

// FetchPage implements notecore.RemoteAPIPort. Page-walking strategy
// (full vs. incremental) lives outside this core (§1 Non-goals); this
// call only ever fetches one page for the given cursor.
func (c *Client) FetchPage(ctx context.Context, syncTag string) (*notecore.SyncPageResponse, error) {
	var env syncPageEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("syncTag", syncTag).
		SetSuccessResult(&env).
		Get(pathSyncPage)
	if werr := wrapError(res, err, "fetch sync page"); werr != nil {
		return nil, werr
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("noteapi: fetch sync page: code %d", env.Code)
	}
	return &notecore.SyncPageResponse{
		SyncTag:          env.Data.SyncTag,
		ChangedNoteIDs:   env.Data.ChangedNoteIDs,
		ChangedFolderIDs: env.Data.ChangedFolderIDs,
	}, nil
}
