// Package registry is the authoritative index of shared files.
//
// A Registry holds one Record per shared file and persists the whole index as
// a single JSON document through a DocumentStore:
//
//	{"files": {"<id>": {...}}, "retired": ["<id>", ...]}
//
// Reads work on an immutable snapshot and never block. Put, RecordAccess,
// Delete and Purge are serialized; each saves the next document before it
// becomes visible, so a failed save (ErrPersist) leaves the registry as it
// was. Deleted ids are retired and cannot be reused.
//
// Reserve holds an access slot under the same lock that commits accesses, so
// concurrent deliveries of a quota-limited record can never be admitted past
// its limit. A Reservation ends with Commit (counted) or Release (not counted).
//
// Document stores:
//
//   - FileDocument: JSON file replaced atomically (temp file, fsync, rename).
//   - MemoryDocument: process memory, for tests and throwaway instances.
//   - RedisDocument: one Redis key.
//   - MongoDocument: one MongoDB document upserted by name.
//   - PostgresDocument: one row in registry_documents. Apply Migrations with
//     pg.Migrate first.
//
// The registry performs no backend I/O; expiration and quota decisions live
// in package admission.
package registry
