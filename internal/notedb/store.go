package notedb

import (
	"github.com/jmoiron/sqlx"
)

// Store implements notecore.PersistencePort on top of a *sqlx.DB opened
// by NewSqliteDB.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps db and ensures the schema exists.
func NewStore(db *sqlx.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
