// Package store persists the task collection. Every implementation reads and
// writes the whole collection at once; there are no incremental writes and no
// indexes.
//
// Implementations:
//   - FileStore  : one JSON file, pretty-printed, replaced atomically on Save
//   - MemoryStore: in-process copy, used in tests and for throwaway servers
//   - SQLiteStore: one table ordered by position, replaced in a transaction
//
// Watch(ctx, path, onChange) reports changes to a FileStore's backing file,
// including edits made outside the server.
package store
