package interpret

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
)

const (
	DefaultModel   = "gemini-3-flash-preview"
	DefaultTimeout = 30 * time.Second
)

// Config describes how to reach the generative-language backend.
type Config struct {
	// APIKey is sent with every request. It is not validated locally; a
	// missing key surfaces as a backend failure on each call.
	APIKey string
	Model  string
	// Endpoint overrides the service base URL. Empty uses the SDK default.
	Endpoint string
	// Timeout bounds a single call. Zero disables the deadline.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	return c
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to parse genai endpoint (%s): %w", c.Endpoint, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("genai endpoint must be an absolute url: %s", c.Endpoint)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("genai timeout must not be negative: %s", c.Timeout)
	}
	return nil
}

func defaultAPIKey() string {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("API_KEY")
}

// Configured registers the interpretation flags and returns a Client that is
// built once flags are parsed.
func Configured() *Client {
	apiKey := lflag.String("genai-api-key", defaultAPIKey(), "API key for the generative-language service (defaults to $GEMINI_API_KEY or $API_KEY)")
	model := lflag.String("genai-model", DefaultModel, "Model used to interpret fleet health")
	endpoint := lflag.String("genai-endpoint", "", "Override the generative-language service base URL")
	timeout := lflag.Duration("genai-timeout", DefaultTimeout, "Deadline for a single interpretation request (0 disables)")

	c := &Client{}
	lflag.Do(func() {
		built, err := New(context.Background(), Config{
			APIKey:   *apiKey,
			Model:    *model,
			Endpoint: *endpoint,
			Timeout:  *timeout,
		})
		if err != nil {
			panic(fmt.Sprintf("interpret init failed: %v", err))
		}
		*c = *built
	})
	return c
}
