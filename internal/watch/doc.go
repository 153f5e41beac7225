// Package watch reports changes to the document folder as they happen.
//
// A Watcher registers every directory under the root with fsnotify, skipping
// the same hidden and excluded paths the corpus leaves out of listings, and
// follows new directories as they are created. Events are delivered on a
// buffered channel; when the consumer falls behind, events are dropped and
// counted rather than blocking the watcher.
package watch
