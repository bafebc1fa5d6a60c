// Package store defines the artifact storage port. Jobs hold
// domain.ArtifactRef handles; the bytes behind them live in an ArtifactStore
// so that implementations can keep them in memory or on disk without the
// core noticing.
//
// Every artifact handed out by Put must be released exactly once. Releasing
// an unknown or already released artifact returns ErrArtifactNotFound.
package store
