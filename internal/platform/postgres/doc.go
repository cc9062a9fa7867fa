// Package postgres provides PostgreSQL implementations of the store
// interfaces. All implementations accept a store.DBTX so they run
// identically against a *sql.DB or a *sql.Tx, and map driver errors to
// the store package's sentinel errors.
package postgres
