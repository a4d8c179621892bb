package mocks_test

import (
	"context"
	"testing"

	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/mocks"
	"github.com/phrazzld/genpoll/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGenerator(t *testing.T) {
	t.Parallel()

	t.Run("result with states", func(t *testing.T) {
		t.Parallel()
		gen := mocks.NewMockGeneratorWithResult("fal", "https://cdn.example/a.png")

		var seen []provider.State
		ctx := provider.WithStateObserver(context.Background(), func(s provider.State) {
			seen = append(seen, s)
		})
		res, err := gen.Generate(ctx, generation.Request{Prompt: "a"})

		require.NoError(t, err)
		assert.Equal(t, "fal", gen.Name())
		assert.Equal(t, "https://cdn.example/a.png", res.Outputs[0].URL)
		assert.Equal(t, []provider.State{provider.StateSubmitted, provider.StatePolling, provider.StateSucceeded}, seen)
		assert.Equal(t, 1, gen.Calls())
		assert.Equal(t, "a", gen.Requests()[0].Prompt)
	})

	t.Run("error without observer", func(t *testing.T) {
		t.Parallel()
		gen := mocks.NewMockGeneratorWithError("bfl", generation.ErrContentBlocked)

		res, err := gen.Generate(context.Background(), generation.Request{Prompt: "b"})

		assert.Nil(t, res)
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
	})

	t.Run("custom function", func(t *testing.T) {
		t.Parallel()
		gen := &mocks.MockGenerator{
			ProviderName: "replicate",
			GenerateFn: func(_ context.Context, req generation.Request) (*generation.Result, error) {
				return &generation.Result{Handle: req.Model}, nil
			},
		}

		res, err := gen.Generate(context.Background(), generation.Request{Prompt: "c", Model: "m"})

		require.NoError(t, err)
		assert.Equal(t, "m", res.Handle)
	})
}
