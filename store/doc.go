// Package store persists finished activity tracks to SQLite.
//
// Every processed video is recorded as a run identified by a UUID, the tracks
// emitted for that run are stored with all of their per frame states.  The
// schema is managed with embedded golang-migrate migrations applied on Open.
package store
