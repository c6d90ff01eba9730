package notedb

// schema creates the tables backing notecore.PersistencePort. Operations
// and entities are intentionally separate tables: the core only ever
// reasons about the columns exposed on notecore.EntityRecord, so
// note/folder-specific columns beyond id/folder_id/server_tag/payload/
// title/updated_at live outside this core's concern.
const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	target_id      TEXT NOT NULL,
	payload        BLOB,
	created_at     DATETIME NOT NULL,
	local_save_at  DATETIME,
	status         TEXT NOT NULL,
	priority       INTEGER NOT NULL DEFAULT 0,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	next_retry_at  DATETIME,
	last_error     TEXT,
	error_kind     TEXT,
	is_local_id    BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_operations_target_id ON operations(target_id);

CREATE TABLE IF NOT EXISTS id_mappings (
	local_id    TEXT PRIMARY KEY,
	server_id   TEXT NOT NULL,
	entity_kind TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	completed   BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_status (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	last_sync_time DATETIME,
	sync_tag       TEXT
);

CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	folder_id   TEXT NOT NULL DEFAULT '',
	server_tag  TEXT NOT NULL DEFAULT '',
	payload     BLOB,
	title       TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_folder_id ON entities(folder_id);
`

// Migrate creates the schema if it does not already exist. Safe to call
// on every startup.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schema)
	return err
}
