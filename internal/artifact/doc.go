// Package artifact caches clinical artifacts fetched from remote
// facilities: document contents, normalized photographs and lab results.
//
// Each artifact is identified by a composite (facility, item) key and is
// always replaced whole on write. There is no delete: eviction belongs to
// whoever owns the backing store. Services front their backend with an
// optional in-memory TTL layer and report reads and writes to an Auditor.
package artifact
