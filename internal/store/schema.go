package store

// schemaSQL creates Forest's relational schema: nodes, their tag mirror,
// the tag-IDF cache, edges, edge history, and the document/chunk mapping.
// WAL mode, explicit indices on hot lookup columns.
const schemaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS nodes (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	body               TEXT NOT NULL,
	token_counts       TEXT NOT NULL DEFAULT '{}',
	embedding          BLOB,
	embedding_dim      INTEGER NOT NULL DEFAULT 0,
	is_chunk           INTEGER NOT NULL DEFAULT 0,
	parent_document_id TEXT,
	chunk_order        INTEGER NOT NULL DEFAULT 0,
	metadata           TEXT NOT NULL DEFAULT '{}',
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_updated_at ON nodes(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_nodes_parent_doc ON nodes(parent_document_id);

CREATE TABLE IF NOT EXISTS node_tags (
	node_id TEXT NOT NULL,
	tag     TEXT NOT NULL,
	PRIMARY KEY (node_id, tag),
	FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_node_tags_tag ON node_tags(tag);

CREATE TABLE IF NOT EXISTS tag_idf (
	tag        TEXT PRIMARY KEY,
	doc_freq   INTEGER NOT NULL,
	idf        REAL NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
	source_id      TEXT NOT NULL,
	target_id      TEXT NOT NULL,
	semantic_score REAL,
	tag_score      REAL,
	shared_tags    TEXT NOT NULL DEFAULT '[]',
	score          REAL NOT NULL,
	status         TEXT NOT NULL,
	edge_type      TEXT NOT NULL,
	metadata       TEXT NOT NULL DEFAULT '{}',
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL,
	PRIMARY KEY (source_id, target_id),
	FOREIGN KEY (source_id) REFERENCES nodes(id) ON DELETE CASCADE,
	FOREIGN KEY (target_id) REFERENCES nodes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(edge_type);

CREATE TABLE IF NOT EXISTS edge_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id   TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	prev_status TEXT NOT NULL DEFAULT '',
	next_status TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	undone      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_edge_events_created_at ON edge_events(created_at);
CREATE INDEX IF NOT EXISTS idx_edge_events_pair ON edge_events(source_id, target_id);

CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	body          TEXT NOT NULL,
	metadata      TEXT NOT NULL DEFAULT '{}',
	version       INTEGER NOT NULL DEFAULT 1,
	root_node_id  TEXT,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS document_chunks (
	document_id TEXT NOT NULL,
	segment_id  TEXT NOT NULL,
	node_id     TEXT NOT NULL UNIQUE,
	offset_     INTEGER NOT NULL,
	length      INTEGER NOT NULL,
	chunk_order INTEGER NOT NULL,
	checksum    TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	PRIMARY KEY (document_id, segment_id),
	FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
	FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS kv_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
