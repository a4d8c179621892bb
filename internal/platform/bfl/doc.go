// Package bfl implements generation.Generator on top of the Black Forest
// Labs FLUX API.
package bfl
