// Package transcript is the record store for transcriptions: the GORM model,
// the status/progress table and a repository whose pipeline writes are
// guarded by an optimistic version column.
package transcript
