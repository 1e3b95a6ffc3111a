// Package memory provides in-memory implementations of the crawl output
// ports. They back --dry-run and tests.
package memory
