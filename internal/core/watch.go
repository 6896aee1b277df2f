package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/foresthq/forest/internal/store"
	"github.com/foresthq/forest/internal/watcher"
)

// sourcePathKey is the Document.Metadata key recording the on-disk file a
// document was imported from, so a later external edit can be reconciled
// back to the same document by WatchImports.
const sourcePathKey = "source_path"

// ImportFile reads path from disk and imports it as a new canonical
// document, recording the originating path in the document's metadata.
func (v *Vault) ImportFile(ctx context.Context, path string, opts DocumentImportOptions) (*DocumentImportResult, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import file: %w", err)
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	res, err := v.ImportDocument(ctx, title, string(body), opts)
	if err != nil {
		return nil, err
	}

	if res.Document.Metadata == nil {
		res.Document.Metadata = map[string]string{}
	}
	res.Document.Metadata[sourcePathKey] = path

	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return res, err
	}
	if err := v.Store.PutDocument(ctx, b, res.Document); err != nil {
		_ = b.Rollback()
		return res, err
	}
	if err := b.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

// findDocumentBySourcePath returns the document whose metadata records path
// as its originating file, or nil if none is tracked yet.
func (v *Vault) findDocumentBySourcePath(ctx context.Context, path string) (*store.Document, error) {
	docs, err := v.Store.ListAllDocuments(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.Metadata[sourcePathKey] == path {
			return d, nil
		}
	}
	return nil, nil
}

// DeleteDocument removes every node belonging to documentID: its root node
// (if any) and every chunk node. The document row itself is removed as a
// side effect once its last chunk disappears (DeleteNode's "parent document
// whose last chunk was just deleted is deleted too" cascade), so this
// method never touches the documents table directly.
func (v *Vault) DeleteDocument(ctx context.Context, documentID string) error {
	doc, err := v.Store.GetDocument(ctx, nil, documentID)
	if err != nil {
		return err
	}
	chunks, err := v.Store.ListDocumentChunks(ctx, nil, documentID)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if err := v.DeleteNode(ctx, c.NodeID); err != nil {
			return err
		}
	}
	if doc.RootNodeID != "" {
		if err := v.DeleteNode(ctx, doc.RootNodeID); err != nil {
			return err
		}
	}
	return nil
}

// ReimportFile replaces the document previously imported from path, if any,
// with a fresh import of its current on-disk contents. The editor save
// pipeline reconciles segment-by-segment through checksum comparison, but
// that pipeline needs the editor buffer's segment_id markers to know which
// chunk a given piece of text used to be; an externally-edited source file
// carries no such markers, so the watched-file path re-derives the whole
// document rather than attempting a partial segment diff.
func (v *Vault) ReimportFile(ctx context.Context, path string, opts DocumentImportOptions) (*DocumentImportResult, error) {
	existing, err := v.findDocumentBySourcePath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := v.DeleteDocument(ctx, existing.ID); err != nil {
			return nil, err
		}
	}
	return v.ImportFile(ctx, path, opts)
}

// WatchImports watches dir for create/modify/delete of files matching
// extensions (e.g. ".md", ".txt"; nil/empty matches every file) and keeps
// the vault's documents in sync: new and modified files are (re)imported,
// and files whose backing document disappears are removed from the graph.
// Blocks until ctx is cancelled or the watcher reports a fatal error.
func (v *Vault) WatchImports(ctx context.Context, dir string, extensions []string, opts DocumentImportOptions) error {
	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
	if err != nil {
		return fmt.Errorf("watch imports: %w", err)
	}
	defer func() { _ = w.Stop() }()

	// Start runs its own event pump until ctx is cancelled or Stop is
	// called, so it must run in the background for this loop to ever reach
	// w.Events()/w.Errors().
	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, dir) }()

	matches := func(path string) bool {
		if len(extensions) == 0 {
			return true
		}
		ext := filepath.Ext(path)
		for _, e := range extensions {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-startErr:
			if err != nil {
				return fmt.Errorf("watch imports: %w", err)
			}
			return nil
		case events, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, ev := range events {
				if ev.IsDir || !matches(ev.Path) {
					continue
				}
				full := filepath.Join(dir, ev.Path)
				switch ev.Operation {
				case watcher.OpCreate, watcher.OpModify:
					if _, err := v.ReimportFile(ctx, full, opts); err != nil {
						return fmt.Errorf("watch imports: reimport %s: %w", full, err)
					}
				case watcher.OpDelete:
					existing, err := v.findDocumentBySourcePath(ctx, full)
					if err != nil {
						return err
					}
					if existing != nil {
						if err := v.DeleteDocument(ctx, existing.ID); err != nil {
							return err
						}
					}
				}
			}
		case watchErr, ok := <-w.Errors():
			if ok && watchErr != nil {
				return fmt.Errorf("watch imports: %w", watchErr)
			}
		}
	}
}
