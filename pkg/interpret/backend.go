package interpret

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ErrMissingAPIKey is returned by every call of a client built without a key.
var ErrMissingAPIKey = errors.New("no api key configured")

type backend interface {
	// generateJSON asks the model for a JSON document matching schema and
	// returns the raw response text.
	generateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

type genaiBackend struct {
	client *genai.Client
	model  string
}

func (b *genaiBackend) generateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

type failingBackend struct {
	err error
}

func (b failingBackend) generateJSON(context.Context, string, *genai.Schema) (string, error) {
	return "", b.err
}
