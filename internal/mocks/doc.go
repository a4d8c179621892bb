// Package mocks provides shared test doubles for the generation pipeline.
//
// Each mock implements an application interface with an optional function
// field for custom behavior, default return values, and call tracking:
//
//	gen := &mocks.MockGenerator{
//	    GenerateFn: func(ctx context.Context, req generation.Request) (*generation.Result, error) {
//	        return &generation.Result{Provider: "replicate"}, nil
//	    },
//	}
package mocks
