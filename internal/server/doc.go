// Package server exposes the reconciled library over a local HTTP API.
//
// # Routes
//
//	GET  /api/songs?query=&offset=&remote=   songs, cache first
//	GET  /api/albums                         albums
//	GET  /api/artists                        artists
//	GET  /api/playlists                      playlist headers
//	GET  /api/artists/{id}/albums            albums crediting an artist
//	GET  /api/albums/{id}/songs              album tracklist
//	GET  /api/playlists/{id}/songs           playlist entries, never cached
//	POST /api/like   {"type","id","liked"}   like or unlike a record
//	POST /api/rate   {"type","id","rating"}  rate a record 0..5
//	GET  /api/status                         cached record counts
//
// Read routes stream every [models.Resource] emission as one line of JSON (application/x-ndjson),
// flushing after each line so a client sees the cached page before the network result:
//
//	{"loading":true,"status":"loading"}
//	{"data":[...],"status":"success"}
//	{"data":[...],"network":[...],"status":"success"}
//	{"loading":false,"status":"loading"}
//
// A failed fetch ends the stream with {"status":"error","message":"..."}; the HTTP status stays 200
// because headers are already sent. Mutation routes answer once with the final result and map
// errors to 400, 401, 404, 502 or 503.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux]. [Middleware] is applied first-added outermost;
// [Logging] records one line per request and [Recover] turns panics into a 500.
package server
