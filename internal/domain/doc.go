// Package domain contains the core entities of the studio: jobs, the tools
// that process them, the closed set of variant kinds and the artifact
// references jobs hold. It is independent of any storage, transport or
// delivery mechanism.
//
// A Job moves forward along Pending -> Processing -> {Success | Error}. The
// only backward transitions are the explicit Reset requests from Success or
// Error back to Pending.
package domain
