// Package store provides SQLite-backed persistence for the integrator's
// cached artifacts, audit trail, issue groups and schema marker.
//
// # Tables
//
//   - cached_documents, cached_images: keyed by (facility_id, item_id) with
//     integer item ids. Rows are replaced whole on refresh.
//   - cached_lab_results: keyed by (facility_id, item_id) with string item
//     ids, indexed by local_patient_id.
//   - event_log: append-only. Triggers abort every UPDATE and DELETE.
//   - issue_groups: named groupings of coded note issues.
//   - system_properties: a single row (id = 1) carrying the schema
//     version. A trigger aborts DELETE.
//
// Timestamps are stored as INTEGER Unix nanoseconds in UTC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool holds a single connection, which serializes writers and makes
// event id assignment atomic. PRAGMA user_version records the table
// layout; Open refuses a database written by a newer layout.
package store
