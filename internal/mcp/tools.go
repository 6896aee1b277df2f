package mcp

// Input/output schema types for every registered tool: flat structs, one
// jsonschema tag per field, omitempty on everything optional.

// CaptureInput is the input schema for the capture tool.
type CaptureInput struct {
	Title string            `json:"title" jsonschema:"the node's title"`
	Body  string            `json:"body" jsonschema:"the node's body text"`
	Tags  []string           `json:"tags,omitempty" jsonschema:"explicit tags to attach in addition to any extracted from the text"`
	Meta  map[string]string `json:"metadata,omitempty" jsonschema:"opaque key/value annotations"`
}

// NodeOutput is the shared representation of a node across tool outputs.
type NodeOutput struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// CaptureOutput is the output schema for the capture tool.
type CaptureOutput struct {
	Node NodeOutput `json:"node"`
}

// ReadInput is the input schema for the read tool.
type ReadInput struct {
	Ref    string `json:"ref" jsonschema:"a node reference: id prefix, @N recency index, #tag, or a quoted text fragment"`
	Select int    `json:"select,omitempty" jsonschema:"disambiguates an ambiguous reference by its 1-based position in the candidate list"`
}

// ReadOutput is the output schema for the read tool.
type ReadOutput struct {
	Node NodeOutput `json:"node"`
}

// SearchMetadataInput is the input schema for the search_metadata tool.
type SearchMetadataInput struct {
	Query string   `json:"query,omitempty" jsonschema:"free text matched lexically against node tokens"`
	Tags  []string `json:"tags,omitempty" jsonschema:"require every listed tag to be present on a matching node"`
	Limit int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

// SearchResultOutput is one ranked node in a search response.
type SearchResultOutput struct {
	Node  NodeOutput `json:"node"`
	Score float64    `json:"score"`
}

// SearchOutput is the output schema for the search_metadata and
// search_semantic tools.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
}

// SearchSemanticInput is the input schema for the search_semantic tool.
type SearchSemanticInput struct {
	Query string `json:"query" jsonschema:"the search query, embedded and ranked by cosine similarity"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// EdgeOutput is one edge between two nodes.
type EdgeOutput struct {
	SourceID   string   `json:"source_id"`
	TargetID   string   `json:"target_id"`
	Score      float64  `json:"score"`
	Type       string   `json:"type"`
	SharedTags []string `json:"shared_tags,omitempty"`
}

// EdgeListInput is the input schema for the edge_list tool.
type EdgeListInput struct {
	NodeRef string `json:"node_ref" jsonschema:"the node whose edges to list"`
}

// EdgeListOutput is the output schema for the edge_list tool.
type EdgeListOutput struct {
	Edges []EdgeOutput `json:"edges"`
}

// EdgePairInput is the input schema for edge_accept, edge_reject, and
// edge_link, which all take two node references.
type EdgePairInput struct {
	SourceRef string `json:"source_ref" jsonschema:"the first node"`
	TargetRef string `json:"target_ref" jsonschema:"the second node"`
}

// EdgeExplainOutput is the output schema for the edge_explain tool.
type EdgeExplainOutput struct {
	Semantic   *float64 `json:"semantic,omitempty"`
	Tag        *float64 `json:"tag,omitempty"`
	SharedTags []string `json:"shared_tags,omitempty"`
	Fused      float64  `json:"fused"`
	Reason     string   `json:"reason"`
}

// TagListOutput is the output schema for the tag_list tool.
type TagListOutput struct {
	Tags []TagOutput `json:"tags"`
}

// TagOutput is one tag's corpus-wide statistics.
type TagOutput struct {
	Tag     string  `json:"tag"`
	DocFreq int     `json:"doc_freq"`
	IDF     float64 `json:"idf"`
}

// TagRenameInput is the input schema for the tag_rename tool.
type TagRenameInput struct {
	OldTag string `json:"old_tag" jsonschema:"the tag to rename"`
	NewTag string `json:"new_tag" jsonschema:"the replacement tag name"`
}

// NodeTagInput is the input schema for the tag_add and tag_remove tools.
type NodeTagInput struct {
	NodeRef string `json:"node_ref" jsonschema:"the node to mutate"`
	Tag     string `json:"tag" jsonschema:"the tag to add or remove"`
}

// ImportInput is the input schema for the import tool.
type ImportInput struct {
	Title        string `json:"title" jsonschema:"the document's title"`
	Body         string `json:"body" jsonschema:"the document's full text"`
	Strategy     string `json:"strategy,omitempty" jsonschema:"chunking strategy: headers, size, or hybrid (default hybrid)"`
	HeaderLevel  int    `json:"header_level,omitempty" jsonschema:"markdown header depth to split on, for the headers/hybrid strategies"`
	MaxTokens    int    `json:"max_tokens,omitempty" jsonschema:"maximum tokens per chunk, for the size/hybrid strategies"`
	OverlapChars int    `json:"overlap_chars,omitempty" jsonschema:"character overlap between adjacent size-based chunks"`
}

// ImportOutput is the output schema for the import tool.
type ImportOutput struct {
	DocumentID  string   `json:"document_id"`
	RootNodeID  string   `json:"root_node_id"`
	ChunkNodeIDs []string `json:"chunk_node_ids"`
}

// SynthesizeInput is the input schema for the synthesize tool. The caller
// (typically an LLM client on the other end of the MCP connection) does
// the summarization; this tool only persists and links the result.
type SynthesizeInput struct {
	SourceRefs []string `json:"source_refs" jsonschema:"two or more node references to synthesize from"`
	Title      string   `json:"title" jsonschema:"the synthesized node's title"`
	Body       string   `json:"body" jsonschema:"the synthesized node's body, already produced by the caller"`
}

// SynthesizeOutput is the output schema for the synthesize tool.
type SynthesizeOutput struct {
	Node NodeOutput `json:"node"`
}

// AdminBulkLinkInput is the input schema for the admin_bulk_link tool.
type AdminBulkLinkInput struct {
	NodeRefs []string `json:"node_refs,omitempty" jsonschema:"node references to bulk-link; empty means every node in the corpus"`
}

// AdminRescoreInput is the input schema for the admin_rescore tool.
type AdminRescoreInput struct {
	Layer   string `json:"layer,omitempty" jsonschema:"which score layer to recompute: both, semantic, or tag (default both)"`
	ReEmbed bool   `json:"re_embed,omitempty" jsonschema:"re-embed nodes with a missing or mismatched embedding before rescoring"`
}

// AdminUndoInput is the input schema for the admin_undo tool.
type AdminUndoInput struct {
	Count int `json:"count,omitempty" jsonschema:"number of edge events to undo, default 1"`
}

// AdminUndoOutput is the output schema for the admin_undo tool.
type AdminUndoOutput struct {
	Undone int `json:"undone"`
}

// AdminMigrateInput is the input schema for the admin_migrate tool.
type AdminMigrateInput struct{}

// AdminMigrateOutput is the output schema for the admin_migrate tool.
type AdminMigrateOutput struct {
	FromVersion int `json:"from_version"`
	ToVersion   int `json:"to_version"`
}
