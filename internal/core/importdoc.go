package core

import (
	"github.com/foresthq/forest/internal/document"
	"github.com/foresthq/forest/internal/store"
)

// DocumentImportOptions is the caller-facing mirror of
// document.ChunkingOptions, kept as its own type so cmd/forest and
// internal/mcp don't need to import internal/document directly for a
// handful of flags.
type DocumentImportOptions struct {
	Strategy     string // "headers" | "size" | "hybrid"
	HeaderLevel  int
	MaxTokens    int
	OverlapChars int
	SuppressRoot bool
}

func (o DocumentImportOptions) toChunkingOptions() document.ChunkingOptions {
	return document.ChunkingOptions{
		Strategy:     document.Strategy(o.Strategy),
		HeaderLevel:  o.HeaderLevel,
		MaxTokens:    o.MaxTokens,
		OverlapChars: o.OverlapChars,
		SuppressRoot: o.SuppressRoot,
	}
}

// DocumentImportResult is the outcome of ImportDocument.
type DocumentImportResult struct {
	Document     *store.Document
	ChunkNodeIDs []string // ordered by chunk position
}
