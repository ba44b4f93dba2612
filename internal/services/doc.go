// Package services defines the [Ampache] interface for the remote media server and implements it
// over the Ampache JSON API with [AmpacheService].
//
// # Requests
//
// Every action is a GET of <server>/json.server.php?action=NAME with query parameters.
// Authenticated calls carry the session token as the auth parameter. The handshake instead sends
// sha256(timestamp + sha256(password)), the username and the unix timestamp.
//
// # Error Handling
//
// Servers report failures in the body, usually with a 200 status:
//
//	{"error": {"errorCode": "4701", "errorAction": "handshake", "errorType": "account", "errorMessage": "..."}}
//
// These become [*APIError], which unwraps to a shared sentinel:
//   - [shared.ErrAuthFailed] : bad handshake, access denied, failed access check
//   - [shared.ErrNotFound] : unknown id
//   - [shared.ErrAPIRequest] : anything else
//
// Transport failures wrap [shared.ErrServiceUnavailable]; undecodable bodies wrap [shared.ErrUnexpectedResponse].
//
// # API Mappings
//
// Response DTOs are tolerant of the type drift between server versions (flag as bool or int,
// rating as null, numeric strings) and are converted to [models.Song], [models.Album],
// [models.Artist], [models.Playlist] and [models.User].
package services
