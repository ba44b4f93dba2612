// Package models defines domain entities and persistence contracts for the ampsync library cache.
//
// The package contains three categories of types:
//
// 1. Library records: locally cached projections of remote entities, keyed by server id
//   - [Song], [Album], [Artist], [Playlist] : browseable library items
//   - [MusicAttribute] : id/name reference to a parent record
//
// 2. Account state: records owned by the session layer
//   - [Session] : short-lived auth token with a deterministic expiry
//   - [Credentials] : username, hashed password and server url used for automatic re-login
//   - [User] : profile of the logged in account
//
// 3. Streams and mutations
//   - [Resource] : one emission of an asynchronous result stream
//   - [OfflineMutation] : like/rate issued while offline, replayed later
//
// The [Cache] interface is the read/write contract every library repository satisfies.
package models
