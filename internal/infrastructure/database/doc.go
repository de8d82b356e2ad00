// Package database provides relational store connectivity for the auth service.
//
// Two backends are supported behind one wrapper:
//   - SQLite (mattn/go-sqlite3) for development and tests, with WAL mode,
//     busy timeout, foreign keys and a single-writer pool
//   - PostgreSQL (jackc/pgx stdlib driver) for production
//
// Repositories write SQL once with ? placeholders; the wrapper rebinds them to
// $n for PostgreSQL. Timestamps are stored as RFC 3339 text on both backends.
//
// Schema migrations are embedded goose files, one directory per dialect,
// registered by the migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Driver: "sqlite3", Path: "./data/auth.db"})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
