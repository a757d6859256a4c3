// Package tasks orchestrates the playlist pipelines that need several Spotify calls, with real-time
// progress reporting.
//
// # Core Operations
//
// The [Pipeline] interface defines four operations:
//
//  1. [Pipeline.Recommend] : seed → recommended tracks
//     - Resolves a playlist, track or artist seed into at most five provider seeds
//     - Requests up to 20 recommendations and keeps the provider's order
//
//  2. [Pipeline.Save] : tracks → new playlist
//     - Resolves the current user, creates one playlist and appends every URI in order
//     - Unfollows the new playlist if populating it fails (configurable)
//
//  3. [Pipeline.Split] : playlist → derived playlists
//     - Fetches every member track and its audio features
//     - Clusters the feature vectors into 2-5 groups with a [Clusterer]
//     - Keeps at most 20 tracks per group, drops groups under 5, labels each by genre
//
//  4. [Pipeline.SaveCluster] : one derived playlist → saved playlist named "<prefix> - <label>"
//
// # Progress Reporting
//
// All operations accept an optional progress channel. The [ProgressUpdate] struct contains phase,
// step counters, messages, and optional data. Updates use select with default to prevent blocking.
//
// # Implementation
//
// [Engine] implements [Pipeline] with dependencies on:
//   - [services.SpotifyAPI] : the Web API client
//   - [Clusterer] : [KMeansClusterer] unless replaced
package tasks
