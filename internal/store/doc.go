// Package store is a concrete execution boundary: an engine.Interpreter that
// renders each action kind to parameterized SQL and runs it over
// database/sql. Two dialects are supported: SQLite (mattn/go-sqlite3, the
// default for tests and the CLI) and Postgres (pgx stdlib driver, using
// numbered placeholders and RETURNING for generated identifiers).
//
// The store never reorders or retries anything: it executes exactly the
// statement one action implies. Transaction management stays with the
// caller.
package store
