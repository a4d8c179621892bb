// Package replicate implements generation.Generator on top of the
// Replicate predictions API.
//
// A generation creates a prediction, then polls the prediction's "get" URL
// through the polling engine until it reaches succeeded, failed or canceled.
package replicate
