// Package database opens the PostgreSQL connection pool used by the recorder.
package database
