// Package store persists the callscore data model in SQLite: dictionaries
// and phrases, per-project scoring settings, call records, and the per-call
// task lifecycle with its metrics and dictionary-match results.
//
// Ownership is explicit: a call record owns its task, a task owns its metrics
// and match rows, a settings container owns its items and their dictionary
// bindings, and a dictionary owns its phrases. All ownership edges cascade on
// delete. Task status transitions are conditional writes guarded by the
// current status, so a task can never leave ready or failed.
package store
