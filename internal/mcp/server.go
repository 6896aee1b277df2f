package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/foresthq/forest/internal/core"
	"github.com/foresthq/forest/internal/linking"
	"github.com/foresthq/forest/internal/store"
	"github.com/foresthq/forest/pkg/version"
)

// Server is the MCP server for Forest. It bridges AI clients (editors,
// agents) with a single core.Vault.
type Server struct {
	mcp    *mcp.Server
	vault  *core.Vault
	logger *slog.Logger
}

// NewServer creates a new MCP server over vault.
func NewServer(vault *core.Vault) (*Server, error) {
	if vault == nil {
		return nil, errors.New("vault is required")
	}

	s := &Server{
		vault:  vault,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "forest",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// MCPServer exposes the underlying SDK server, for callers that need to
// register transports directly.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "capture",
		Description: "Create a new node from title and body text. Tags are extracted from the text automatically and merged with any explicit tags supplied. The node is auto-linked against the rest of the graph.",
	}, s.handleCapture)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read",
		Description: "Resolve a node reference (id prefix, @N recency index, #tag, or quoted fragment) and return the node.",
	}, s.handleRead)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_metadata",
		Description: "Search nodes by tag filters and lexical token overlap. Use for filtered, keyword-style lookups.",
	}, s.handleSearchMetadata)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_semantic",
		Description: "Embed a query and rank every node by cosine similarity. Use for conceptual, meaning-based lookups.",
	}, s.handleSearchSemantic)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "edge_list",
		Description: "List every edge touching a node, with scores and types.",
	}, s.handleEdgeList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "edge_accept",
		Description: "Confirm an edge between two nodes (a no-op on Forest's always-accepted edges, kept for API symmetry).",
	}, s.handleEdgeAccept)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "edge_reject",
		Description: "Delete the edge between two nodes.",
	}, s.handleEdgeReject)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "edge_explain",
		Description: "Return the semantic/tag score breakdown and shared tags behind an edge.",
	}, s.handleEdgeExplain)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "edge_link",
		Description: "Create a manual edge between two nodes, bypassing the scoring thresholds.",
	}, s.handleEdgeLink)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tag_list",
		Description: "List every tag in the corpus with its document frequency and IDF.",
	}, s.handleTagList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tag_rename",
		Description: "Rename a tag on every node that carries it.",
	}, s.handleTagRename)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tag_add",
		Description: "Add a tag to a node and re-link it.",
	}, s.handleTagAdd)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tag_remove",
		Description: "Remove a tag from a node and re-link it.",
	}, s.handleTagRemove)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "import",
		Description: "Split a document's body into chunk nodes per the given strategy, materialize structural edges, and link the whole document into the graph.",
	}, s.handleImport)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "synthesize",
		Description: "Persist a new node produced by summarizing two or more source nodes, recording the synthesis provenance and auto-linking it.",
	}, s.handleSynthesize)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "admin_bulk_link",
		Description: "Run bulk pairwise linking for a set of nodes (or the whole corpus) against every other node.",
	}, s.handleAdminBulkLink)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "admin_rescore",
		Description: "Rebuild tag IDF and recompute edge scores across the whole corpus, optionally re-embedding stale nodes first.",
	}, s.handleAdminRescore)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "admin_undo",
		Description: "Revert the last N edge events in reverse chronological order.",
	}, s.handleAdminUndo)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "admin_migrate",
		Description: "Apply pending storage schema migrations.",
	}, s.handleAdminMigrate)

	s.logger.Info("MCP tools registered", slog.Int("count", 19))
}

func toNodeOutput(n *store.Node) NodeOutput {
	return NodeOutput{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Tags:      n.Tags,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleCapture(ctx context.Context, _ *mcp.CallToolRequest, in CaptureInput) (*mcp.CallToolResult, CaptureOutput, error) {
	if in.Title == "" && in.Body == "" {
		return nil, CaptureOutput{}, NewInvalidParamsError("title or body is required")
	}
	n, err := s.vault.Capture(ctx, core.CaptureInput{
		Title:     in.Title,
		Body:      in.Body,
		ExtraTags: in.Tags,
		Metadata:  in.Meta,
		AutoLink:  true,
	})
	if err != nil {
		return nil, CaptureOutput{}, MapError(err)
	}
	return nil, CaptureOutput{Node: toNodeOutput(n)}, nil
}

func (s *Server) handleRead(ctx context.Context, _ *mcp.CallToolRequest, in ReadInput) (*mcp.CallToolResult, ReadOutput, error) {
	if in.Ref == "" {
		return nil, ReadOutput{}, NewInvalidParamsError("ref is required")
	}
	n, err := s.vault.Resolve(ctx, in.Ref, in.Select)
	if err != nil {
		return nil, ReadOutput{}, MapError(err)
	}
	return nil, ReadOutput{Node: toNodeOutput(n)}, nil
}

func (s *Server) handleSearchMetadata(ctx context.Context, _ *mcp.CallToolRequest, in SearchMetadataInput) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.vault.SearchMetadata(ctx, in.Query, core.MetadataSearchOptions{Tags: in.Tags, Limit: in.Limit})
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}
	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{Node: toNodeOutput(r.Node), Score: r.Score})
	}
	return nil, out, nil
}

func (s *Server) handleSearchSemantic(ctx context.Context, _ *mcp.CallToolRequest, in SearchSemanticInput) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.vault.SearchSemantic(ctx, in.Query, in.Limit)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}
	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{Node: toNodeOutput(r.Node), Score: r.Score})
	}
	return nil, out, nil
}

func (s *Server) handleEdgeList(ctx context.Context, _ *mcp.CallToolRequest, in EdgeListInput) (*mcp.CallToolResult, EdgeListOutput, error) {
	n, err := s.vault.Resolve(ctx, in.NodeRef, 0)
	if err != nil {
		return nil, EdgeListOutput{}, MapError(err)
	}
	edges, err := s.vault.ListEdges(ctx, n.ID)
	if err != nil {
		return nil, EdgeListOutput{}, MapError(err)
	}
	out := EdgeListOutput{Edges: make([]EdgeOutput, 0, len(edges))}
	for _, e := range edges {
		out.Edges = append(out.Edges, EdgeOutput{
			SourceID:   e.SourceID,
			TargetID:   e.TargetID,
			Score:      e.Score,
			Type:       string(e.Type),
			SharedTags: e.SharedTags,
		})
	}
	return nil, out, nil
}

func (s *Server) resolvePair(ctx context.Context, a, c string) (string, string, error) {
	na, err := s.vault.Resolve(ctx, a, 0)
	if err != nil {
		return "", "", err
	}
	nc, err := s.vault.Resolve(ctx, c, 0)
	if err != nil {
		return "", "", err
	}
	return na.ID, nc.ID, nil
}

func (s *Server) handleEdgeAccept(ctx context.Context, _ *mcp.CallToolRequest, in EdgePairInput) (*mcp.CallToolResult, struct{}, error) {
	a, c, err := s.resolvePair(ctx, in.SourceRef, in.TargetRef)
	if err != nil {
		return nil, struct{}{}, MapError(err)
	}
	if err := s.vault.AcceptEdge(ctx, a, c); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleEdgeReject(ctx context.Context, _ *mcp.CallToolRequest, in EdgePairInput) (*mcp.CallToolResult, struct{}, error) {
	a, c, err := s.resolvePair(ctx, in.SourceRef, in.TargetRef)
	if err != nil {
		return nil, struct{}{}, MapError(err)
	}
	if err := s.vault.RejectEdge(ctx, a, c); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleEdgeExplain(ctx context.Context, _ *mcp.CallToolRequest, in EdgePairInput) (*mcp.CallToolResult, EdgeExplainOutput, error) {
	a, c, err := s.resolvePair(ctx, in.SourceRef, in.TargetRef)
	if err != nil {
		return nil, EdgeExplainOutput{}, MapError(err)
	}
	exp, err := s.vault.ExplainEdge(ctx, a, c)
	if err != nil {
		return nil, EdgeExplainOutput{}, MapError(err)
	}
	return nil, EdgeExplainOutput{
		Semantic:   exp.Semantic,
		Tag:        exp.Tag,
		SharedTags: exp.SharedTags,
		Fused:      exp.Fused,
		Reason:     exp.Reason,
	}, nil
}

func (s *Server) handleEdgeLink(ctx context.Context, _ *mcp.CallToolRequest, in EdgePairInput) (*mcp.CallToolResult, struct{}, error) {
	a, c, err := s.resolvePair(ctx, in.SourceRef, in.TargetRef)
	if err != nil {
		return nil, struct{}{}, MapError(err)
	}
	if err := s.vault.LinkManual(ctx, a, c); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleTagList(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, TagListOutput, error) {
	tags, err := s.vault.ListTags(ctx)
	if err != nil {
		return nil, TagListOutput{}, MapError(err)
	}
	out := TagListOutput{Tags: make([]TagOutput, 0, len(tags))}
	for _, t := range tags {
		out.Tags = append(out.Tags, TagOutput{Tag: t.Tag, DocFreq: t.DocFreq, IDF: t.IDF})
	}
	return nil, out, nil
}

func (s *Server) handleTagRename(ctx context.Context, _ *mcp.CallToolRequest, in TagRenameInput) (*mcp.CallToolResult, struct{}, error) {
	if in.OldTag == "" || in.NewTag == "" {
		return nil, struct{}{}, NewInvalidParamsError("old_tag and new_tag are required")
	}
	if err := s.vault.RenameTag(ctx, in.OldTag, in.NewTag); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleTagAdd(ctx context.Context, _ *mcp.CallToolRequest, in NodeTagInput) (*mcp.CallToolResult, struct{}, error) {
	n, err := s.vault.Resolve(ctx, in.NodeRef, 0)
	if err != nil {
		return nil, struct{}{}, MapError(err)
	}
	if err := s.vault.AddTag(ctx, n.ID, in.Tag); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleTagRemove(ctx context.Context, _ *mcp.CallToolRequest, in NodeTagInput) (*mcp.CallToolResult, struct{}, error) {
	n, err := s.vault.Resolve(ctx, in.NodeRef, 0)
	if err != nil {
		return nil, struct{}{}, MapError(err)
	}
	if err := s.vault.RemoveTag(ctx, n.ID, in.Tag); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleImport(ctx context.Context, _ *mcp.CallToolRequest, in ImportInput) (*mcp.CallToolResult, ImportOutput, error) {
	if in.Title == "" || in.Body == "" {
		return nil, ImportOutput{}, NewInvalidParamsError("title and body are required")
	}
	strategy := in.Strategy
	if strategy == "" {
		strategy = "hybrid"
	}
	res, err := s.vault.ImportDocument(ctx, in.Title, in.Body, core.DocumentImportOptions{
		Strategy:     strategy,
		HeaderLevel:  in.HeaderLevel,
		MaxTokens:    in.MaxTokens,
		OverlapChars: in.OverlapChars,
	})
	if err != nil {
		return nil, ImportOutput{}, MapError(err)
	}
	return nil, ImportOutput{
		DocumentID:   res.Document.ID,
		RootNodeID:   res.Document.RootNodeID,
		ChunkNodeIDs: res.ChunkNodeIDs,
	}, nil
}

func (s *Server) handleSynthesize(ctx context.Context, _ *mcp.CallToolRequest, in SynthesizeInput) (*mcp.CallToolResult, SynthesizeOutput, error) {
	if len(in.SourceRefs) < 2 {
		return nil, SynthesizeOutput{}, NewInvalidParamsError("source_refs requires at least 2 entries")
	}
	if in.Title == "" && in.Body == "" {
		return nil, SynthesizeOutput{}, NewInvalidParamsError("title or body is required")
	}

	ids := make([]string, 0, len(in.SourceRefs))
	for _, ref := range in.SourceRefs {
		n, err := s.vault.Resolve(ctx, ref, 0)
		if err != nil {
			return nil, SynthesizeOutput{}, MapError(err)
		}
		ids = append(ids, n.ID)
	}

	n, err := s.vault.Synthesize(ctx, ids, func(_ []*store.Node) (string, string, error) {
		return in.Title, in.Body, nil
	})
	if err != nil {
		return nil, SynthesizeOutput{}, MapError(err)
	}
	return nil, SynthesizeOutput{Node: toNodeOutput(n)}, nil
}

func (s *Server) handleAdminBulkLink(ctx context.Context, _ *mcp.CallToolRequest, in AdminBulkLinkInput) (*mcp.CallToolResult, struct{}, error) {
	ids := in.NodeRefs
	if len(ids) > 0 {
		resolved := make([]string, 0, len(ids))
		for _, ref := range ids {
			n, err := s.vault.Resolve(ctx, ref, 0)
			if err != nil {
				return nil, struct{}{}, MapError(err)
			}
			resolved = append(resolved, n.ID)
		}
		ids = resolved
	}
	if err := s.vault.BulkLink(ctx, ids); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleAdminRescore(ctx context.Context, _ *mcp.CallToolRequest, in AdminRescoreInput) (*mcp.CallToolResult, struct{}, error) {
	layer := linking.ScoreLayerBoth
	switch in.Layer {
	case "semantic":
		layer = linking.ScoreLayerSemanticOnly
	case "tag":
		layer = linking.ScoreLayerTagOnly
	case "", "both":
	default:
		return nil, struct{}{}, NewInvalidParamsError("layer must be one of: both, semantic, tag")
	}
	if err := s.vault.RescoreAll(ctx, layer, in.ReEmbed); err != nil {
		return nil, struct{}{}, MapError(err)
	}
	return nil, struct{}{}, nil
}

func (s *Server) handleAdminUndo(ctx context.Context, _ *mcp.CallToolRequest, in AdminUndoInput) (*mcp.CallToolResult, AdminUndoOutput, error) {
	n := in.Count
	if n <= 0 {
		n = 1
	}
	undone, err := s.vault.Undo(ctx, n)
	if err != nil {
		return nil, AdminUndoOutput{}, MapError(err)
	}
	return nil, AdminUndoOutput{Undone: undone}, nil
}

func (s *Server) handleAdminMigrate(ctx context.Context, _ *mcp.CallToolRequest, _ AdminMigrateInput) (*mcp.CallToolResult, AdminMigrateOutput, error) {
	from, to, err := s.vault.MigrateStorage(ctx)
	if err != nil {
		return nil, AdminMigrateOutput{}, MapError(err)
	}
	return nil, AdminMigrateOutput{FromVersion: from, ToVersion: to}, nil
}

// Serve starts the server with the specified transport. Stdio is the
// only transport Forest ships today.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.vault.Close()
}
