// Package repositories implements SQLite persistence for the ampsync library cache.
//
// Each library repository satisfies [models.Cache] for one record kind and is the single source of truth for reads:
// remote payloads are upserted here and read back, never handed to callers directly.
//
// Key Implementations:
//   - [SongRepository], [AlbumRepository], [ArtistRepository], [PlaylistRepository] : cached library records
//   - [UserRepository] : profile of the logged in account
//   - [OfflineRepository] : append-only log of like/rate mutations issued while offline
//
// The offline log is ordered by a sequence number taken from a dedicated sequence table, see [NextSequence].
package repositories
