package noteapi

import (
	"context"
	"fmt"
	"time"

	"github.com/openmined/notesync/internal/notecore"
)

type createFolderRequest struct {
	Name string `json:"name"`
}

type renameFolderRequest struct {
	Name            string     `json:"name"`
	ExistingTag     string     `json:"existingTag"`
	OriginalCreated *time.Time `json:"originalCreateDate,omitempty"`
}

// CreateFolder implements notecore.RemoteAPIPort.
func (c *Client) CreateFolder(ctx context.Context, name string) (*notecore.FolderEntryResponse, error) {
	var env entryEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(&createFolderRequest{Name: name}).
		SetSuccessResult(&env).
		Post(pathFolders)
	if werr := wrapError(res, err, "create folder"); werr != nil {
		return nil, werr
	}
	if !env.succeeded() {
		return nil, fmt.Errorf("noteapi: create folder: code %d", env.Code)
	}
	return &notecore.FolderEntryResponse{ID: env.Data.Entry.ID, Tag: env.resolveTag("")}, nil
}

// RenameFolder implements notecore.RemoteAPIPort.
func (c *Client) RenameFolder(ctx context.Context, id, name, existingTag string, originalCreateDate *time.Time) (*notecore.FolderEntryResponse, error) {
	var env entryEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(&renameFolderRequest{Name: name, ExistingTag: existingTag, OriginalCreated: originalCreateDate}).
		SetSuccessResult(&env).
		Put(fmt.Sprintf("%s/%s", pathFolders, id))
	if werr := wrapError(res, err, "rename folder"); werr != nil {
		return nil, werr
	}
	if !env.succeeded() {
		return nil, fmt.Errorf("noteapi: rename folder: code %d", env.Code)
	}
	return &notecore.FolderEntryResponse{ID: id, Tag: env.resolveTag(existingTag)}, nil
}

// DeleteFolder implements notecore.RemoteAPIPort.
func (c *Client) DeleteFolder(ctx context.Context, id, tag string, purge bool) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("tag", tag).
		SetQueryParam("purge", fmt.Sprintf("%t", purge)).
		Delete(fmt.Sprintf("%s/%s", pathFolders, id))
	return wrapError(res, err, "delete folder")
}
