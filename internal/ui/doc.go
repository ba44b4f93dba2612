// Package ui implements the library browser using bubbletea's Elm architecture.
//
// The [Model] shows one [list.Model] per resource kind with a tab bar on top:
//   - tab / shift+tab cycle songs, albums, artists and playlists
//   - enter drills into an album's songs, an artist's albums or a playlist's songs
//   - f toggles the like flag of the selected row through the offline queue
//   - r refreshes the focused view from the server
//   - / filters the focused list, esc leaves a drilled view
//
// Every list is fed by a reconciliation stream. Each emission becomes a message carrying the
// next read as a command, so the cached page renders first and the server result replaces it.
package ui
