// Package api exposes generation jobs over HTTP.
//
// Clients submit a generation with POST /api/generations and receive a task
// ID immediately; the job itself runs in the background. GET
// /api/generations/{id} reports the task's status and, once finished, its
// outputs or a classified error.
package api
