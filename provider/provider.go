package provider

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
	openai_provider "github.com/mohammad-safakhou/netresearch/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	// OpenAICompatible covers every service speaking the OpenAI chat
	// completions protocol, including Together AI.
	OpenAICompatible Client = "openai"
)

// Email draft kinds accepted by GenerateEmail.
const (
	EmailColab    = "colab"
	EmailReachOut = "reach_out"
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	// ExtractFilters derives search filters from a free-text query,
	// optionally disambiguated by CV concepts. Returned filters always
	// carry one or two topics; anything else is an error.
	ExtractFilters(ctx context.Context, query string, cvConcepts []string) (runs.Filter, error)

	// ExtractCVConcepts pulls 5-10 research concepts out of CV text.
	// An empty list with a nil error means the model found nothing.
	ExtractCVConcepts(ctx context.Context, text string) ([]string, error)

	// GenerateEmail drafts an outreach email of the given kind from a
	// student to a professor.
	GenerateEmail(ctx context.Context, emailType, professorName, professorContext, cvText string, cvConcepts []string, studentName string) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, apiKey, baseURL, model string, timeout time.Duration) (Provider, error) {
	switch client {
	case OpenAICompatible:
		if apiKey == "" {
			return nil, errors.New("LLM api key not set")
		}
		return openai_provider.NewOpenAIClient(apiKey, baseURL, model, 0.2, 4096, timeout), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
