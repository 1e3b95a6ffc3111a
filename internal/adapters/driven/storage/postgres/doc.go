// Package postgres provides an OutputSink that upserts crawl records into
// a PostgreSQL documents table with the fields stored as jsonb.
package postgres
