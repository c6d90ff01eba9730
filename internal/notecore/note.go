package notecore

import "time"

// Note is the core's view of a note: enough to drive queueing and id
// reconciliation. Rendering, formatting, and attachment handling are the
// editor's concern (§1 Non-goals).
type Note struct {
	ID        string
	Title     string
	Content   []byte
	FolderID  string
	ServerTag string
	UpdatedAt time.Time
}

func (n *Note) toEntity() *EntityRecord {
	return &EntityRecord{
		ID:        n.ID,
		Kind:      EntityNote,
		FolderID:  n.FolderID,
		ServerTag: n.ServerTag,
		Payload:   n.Content,
		Title:     n.Title,
		UpdatedAt: n.UpdatedAt,
	}
}

func noteFromEntity(e *EntityRecord) *Note {
	if e == nil {
		return nil
	}
	return &Note{
		ID:        e.ID,
		Title:     e.Title,
		Content:   e.Payload,
		FolderID:  e.FolderID,
		ServerTag: e.ServerTag,
		UpdatedAt: e.UpdatedAt,
	}
}
