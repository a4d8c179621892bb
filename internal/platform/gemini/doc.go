// Package gemini implements generation.Generator for video generation with
// Veo models through the Gemini API.
//
// GenerateVideos starts a long-running operation. The generator then polls
// the operation with Operations.GetVideosOperation until it reports Done,
// and maps the outcome onto the generation error taxonomy:
//
//   - an operation error is a logical generation failure
//   - a finished operation whose videos were all removed by the
//     responsible-AI filters is ErrContentBlocked
//   - API errors while checking the operation count as query failures and
//     follow the same consecutive-failure rules as the HTTP providers
//
// The genai client is reached through a small interface so tests can supply
// a fake.
package gemini
