// Package database opens the PostgreSQL pool backing the journal.
package database
