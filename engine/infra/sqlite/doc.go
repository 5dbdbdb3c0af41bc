// Package sqlite provides the modernc.org/sqlite backed audit log store.
//
// Schema changes live in embedded goose migrations applied when the store
// is opened.
package sqlite
