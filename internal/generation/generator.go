package generation

import (
	"context"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Request describes one generation job.
type Request struct {
	Prompt         string `json:"prompt" validate:"required,max=4000"`
	NegativePrompt string `json:"negative_prompt,omitempty" validate:"max=4000"`
	Width          int    `json:"width,omitempty" validate:"omitempty,min=64,max=4096"`
	Height         int    `json:"height,omitempty" validate:"omitempty,min=64,max=4096"`
	Seed           *int64 `json:"seed,omitempty"`
	// Model overrides the provider's configured model when set.
	Model string `json:"model,omitempty"`
}

// Validate checks the request against its field constraints.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return wrapInvalid(err)
	}
	return nil
}

// Asset is one generated output. Providers return either a URL or inline
// data; inline data is base64 encoded in JSON.
type Asset struct {
	URL      string `json:"url,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Result is the outcome of a successful generation.
type Result struct {
	Provider string  `json:"provider"`
	Handle   string  `json:"handle"`
	Outputs  []Asset `json:"outputs"`
}

// Generator runs a generation job to completion on one provider.
type Generator interface {
	// Name returns the provider name used to select this generator.
	Name() string

	// Generate submits req and waits for the job to finish. Errors are
	// classified with ClassifyError.
	Generate(ctx context.Context, req Request) (*Result, error)
}
