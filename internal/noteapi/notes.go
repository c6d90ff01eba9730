package noteapi

import (
	"context"
	"fmt"

	"github.com/openmined/notesync/internal/notecore"
)

type createNoteRequest struct {
	Title    string `json:"title"`
	Content  []byte `json:"content"`
	FolderID string `json:"folderId,omitempty"`
}

type updateNoteRequest struct {
	Title       string `json:"title"`
	Content     []byte `json:"content"`
	FolderID    string `json:"folderId,omitempty"`
	ExistingTag string `json:"existingTag"`
}

// CreateNote implements notecore.RemoteAPIPort.
func (c *Client) CreateNote(ctx context.Context, title string, content []byte, folderID string) (*notecore.NoteEntryResponse, error) {
	var env entryEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(&createNoteRequest{Title: title, Content: content, FolderID: folderID}).
		SetSuccessResult(&env).
		Post(pathNotes)
	if werr := wrapError(res, err, "create note"); werr != nil {
		return nil, werr
	}
	if !env.succeeded() {
		return nil, fmt.Errorf("noteapi: create note: code %d", env.Code)
	}
	return &notecore.NoteEntryResponse{
		ID:       env.Data.Entry.ID,
		Tag:      env.resolveTag(""),
		FolderID: env.Data.Entry.FolderID,
	}, nil
}

// UpdateNote implements notecore.RemoteAPIPort.
func (c *Client) UpdateNote(ctx context.Context, id, title string, content []byte, folderID, existingTag string) (*notecore.NoteEntryResponse, error) {
	var env entryEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(&updateNoteRequest{Title: title, Content: content, FolderID: folderID, ExistingTag: existingTag}).
		SetSuccessResult(&env).
		Put(fmt.Sprintf("%s/%s", pathNotes, id))
	if werr := wrapError(res, err, "update note"); werr != nil {
		return nil, werr
	}
	if !env.succeeded() {
		return nil, fmt.Errorf("noteapi: update note: code %d", env.Code)
	}
	return &notecore.NoteEntryResponse{
		ID:       id,
		Tag:      env.resolveTag(existingTag),
		FolderID: env.Data.Entry.FolderID,
	}, nil
}

// DeleteNote implements notecore.RemoteAPIPort.
func (c *Client) DeleteNote(ctx context.Context, id, tag string, purge bool) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("tag", tag).
		SetQueryParam("purge", fmt.Sprintf("%t", purge)).
		Delete(fmt.Sprintf("%s/%s", pathNotes, id))
	return wrapError(res, err, "delete note")
}
