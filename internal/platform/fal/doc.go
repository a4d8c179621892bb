// Package fal implements generation.Generator on top of the fal.ai queue API.
package fal
