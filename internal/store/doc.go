// Package store defines the document model the authentication core persists
// user profiles and group records into, and the Store interface backends implement.
//
// A document is addressed by a Reference (wiki, space, name) and carries typed
// objects: a user object holding profile fields, a directory link object holding
// the distinguished name and uid of the directory entry it was provisioned from,
// and one group object per member for group documents.
//
// Two backends are provided:
//   - memory: a deterministic in-process store, used by tests and demo setups
//   - sqlstore: a gorm backed store for mysql, postgres and sqlite
package store
