package embedgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foresthq/forest/internal/ferrors"
)

// LocalDimensions is the default dimensionality of the local (on-device)
// provider: a 384-dim sentence-transformer served over HTTP.
const LocalDimensions = 384

// LocalConfig configures the on-device embedding provider.
type LocalConfig struct {
	Host       string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// DefaultLocalConfig returns sensible local-provider defaults.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Host:       "http://localhost:11434",
		Model:      "embeddinggemma",
		Dimensions: LocalDimensions,
		Timeout:    60 * time.Second,
	}
}

// localGateway calls an Ollama-compatible /api/embed endpoint.
type localGateway struct {
	client *http.Client
	cfg    LocalConfig
}

// NewLocal constructs a local gateway. It does not probe the server at
// construction time; the reported dimension comes from config, and
// availability failures surface per-call as ferrors.EmbeddingFailure.
func NewLocal(cfg LocalConfig) Gateway {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = LocalDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &localGateway{
		client: &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 4}},
		cfg:    cfg,
	}
}

type localEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type localEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (g *localGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *localGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	body, err := json.Marshal(localEmbedRequest{Model: g.cfg.Model, Input: input})
	if err != nil {
		return nil, ferrors.EmbeddingFailure("marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, ferrors.EmbeddingFailure("build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, ferrors.EmbeddingFailure("local embedding provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, ferrors.EmbeddingFailure(fmt.Sprintf("local embedding provider returned %d: %s", resp.StatusCode, respBody), nil)
	}

	var parsed localEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, ferrors.EmbeddingFailure("decode embed response", err)
	}

	results := make([][]float32, len(parsed.Embeddings))
	for i, emb := range parsed.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		results[i] = vec
	}
	return results, nil
}

func (g *localGateway) Dimensions() int  { return g.cfg.Dimensions }
func (g *localGateway) Provider() string { return "local" }
func (g *localGateway) Close() error     { return nil }
