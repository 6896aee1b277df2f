package embedgw

import "context"

// noneGateway always returns "no embedding": the linking
// engine degrades to tag-only scoring whenever it sees nil vectors back.
type noneGateway struct{}

// NewNone constructs the always-absent gateway.
func NewNone() Gateway { return &noneGateway{} }

func (noneGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (noneGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (noneGateway) Dimensions() int  { return 0 }
func (noneGateway) Provider() string { return "none" }
func (noneGateway) Close() error     { return nil }
