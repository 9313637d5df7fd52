package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"cabinetquote/internal/ai"
	"cabinetquote/internal/config"
	"cabinetquote/internal/google"
)

// Embedder is satisfied by ai.APIEmbedder and ai.HashingEmbedder.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// NewEmbedder picks the embedding provider. The server and the build job
// must use the same one or query vectors will not match the index.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	switch cfg.Embedding.Provider {
	case "", "api":
		client := ai.NewOpenAICompatibleClientWithHTTP(&http.Client{Timeout: 60 * time.Second})
		return ai.NewAPIEmbedder(client, ai.EmbeddingConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.EmbeddingAPIKey(),
			Model:   cfg.Embedding.Model,
		}, cfg.Embedding.BatchSize), nil
	case "hashing":
		return ai.NewHashingEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// GoogleTokenSource tries the refresh token from the environment, then the
// token file, and fetches one access token to prove the credentials work.
func GoogleTokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, string, error) {
	ts, source, err := google.ResolveTokenSource(ctx,
		google.EnvCredentials{
			ClientID:     cfg.Mail.ClientID,
			ClientSecret: cfg.Mail.ClientSecret,
			RefreshToken: cfg.Mail.RefreshToken,
		},
		google.TokenFileCredentials{Path: cfg.Mail.TokenFile},
	)
	if err != nil {
		return nil, "", err
	}
	if _, err := ts.Token(); err != nil {
		return nil, "", fmt.Errorf("google credentials from %s rejected: %w", source, err)
	}
	return ts, source, nil
}
