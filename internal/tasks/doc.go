// Package tasks reconciles a source playlist on one catalog into a target playlist on another.
//
// # Run
//
// [SyncEngine.Run] walks a fixed sequence of phases:
//
//  1. [SelectSource] : the playlist given by id, or one picked through the [Selector]
//  2. [ReadSource] : every track of the source playlist, optionally capped
//  3. [SelectTarget] : as above, on the target catalog
//  4. [MatchTracks] : per track, normalize the title, search the target and rank the candidates
//  5. [WriteTarget] : append the matched ids in order through the batched writer
//  6. [Done]
//
// A failed search only marks its track. Failing to read the source or to write the
// target ends the run with the partial [SyncResult].
//
// # Progress Reporting
//
// Updates are sent on a caller-owned channel with select/default so a slow reader
// never stalls a run. During [MatchTracks] each update carries the *models.TrackOutcome.
package tasks
