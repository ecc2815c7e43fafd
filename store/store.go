// Package store is the SQLite persistence layer: documents, their classified
// elements, cached statistics, warnings and the analysis run log.
//
// Lookups of a single row return nil, nil when the row does not exist.
package store

import (
	"database/sql"

	"github.com/hazyhaar/pdfstruct/dbopen"
)

// Store is the pdfstruct database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
		dbopen.WithSchemaVersion(SchemaVersion),
	}, opts...)

	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
