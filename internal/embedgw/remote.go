package embedgw

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/foresthq/forest/internal/ferrors"
)

// RemoteDimensions is the dimensionality of the default remote model,
// text-embedding-3-small.
const RemoteDimensions = 1536

// RemoteDefaultModel is used when no model override is configured.
const RemoteDefaultModel = oai.EmbeddingModelTextEmbedding3Small

// RemoteConfig configures the hosted-embeddings provider.
type RemoteConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type remoteGateway struct {
	client oai.Client
	model  string
	dims   int
}

// NewRemote constructs the hosted (remote) gateway. Requires an API key;
// fconfig.Validate already enforces this before a Config reaches here.
func NewRemote(cfg RemoteConfig) (Gateway, error) {
	if cfg.APIKey == "" {
		return nil, ferrors.Validation("remote embedding provider requires an API key", nil)
	}
	model := cfg.Model
	if model == "" {
		model = RemoteDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &remoteGateway{
		client: oai.NewClient(opts...),
		model:  model,
		dims:   remoteModelDimensions(model),
	}, nil
}

func (g *remoteGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: g.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
	})
	if err != nil {
		return nil, ferrors.EmbeddingFailure("remote embed", err)
	}
	if len(resp.Data) == 0 {
		return nil, ferrors.EmbeddingFailure("remote embed returned no data", nil)
	}
	return float64ToFloat32(resp.Data[0].Embedding), nil
}

func (g *remoteGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := g.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: g.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, ferrors.EmbeddingFailure("remote embed batch", err)
	}

	results := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) >= len(texts) {
			return nil, ferrors.EmbeddingFailure(fmt.Sprintf("remote embed batch returned out-of-range index %d", e.Index), nil)
		}
		results[int(e.Index)] = float64ToFloat32(e.Embedding)
	}
	return results, nil
}

func (g *remoteGateway) Dimensions() int  { return g.dims }
func (g *remoteGateway) Provider() string { return "remote" }
func (g *remoteGateway) Close() error     { return nil }

func remoteModelDimensions(model string) int {
	switch model {
	case oai.EmbeddingModelTextEmbedding3Large:
		return 3072
	case oai.EmbeddingModelTextEmbedding3Small, oai.EmbeddingModelTextEmbeddingAda002:
		return 1536
	default:
		return RemoteDimensions
	}
}

func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
