// Package tasks implements the offline mutation queue.
//
// # Mutations
//
// [Mutator.Like] and [Mutator.Rate] return a [models.Resource] stream like the library views do:
//
//  1. The mutation is validated (ratings must be 0..5)
//  2. The cached row is updated so the UI reflects the change immediately
//  3. With offline mode on, the mutation is appended to the [MutationLog] and reported as a success
//  4. Otherwise it is sent to the server; a failure is reported but the local change is kept
//
// Updating a row that is not cached is not an error.
//
// # Replay
//
// [Mutator.Replay] drains the log once the server answers a ping. Mutations are grouped by target
// and each group is sent in log order by one worker, so a target's last write always wins.
// A rejected mutation stays in the log and holds back the rest of its group until the next replay.
//
// Workers share a rate limiter ([golang.org/x/time/rate]) to keep replay polite to small servers.
//
// # Progress Reporting
//
// Replay sends [ProgressUpdate] values through an optional channel. Sends use select with default,
// so a slow reader never stalls the workers.
package tasks
