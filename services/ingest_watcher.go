package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/docuchat/server/models"
)

// DocumentSink persists a new document record. Satisfied by the repository.
type DocumentSink interface {
	AddDocument(ctx context.Context, doc *models.Document) error
}

// IngestWatcher watches a drop directory: a PDF created or written there is
// extracted, persisted as a document and indexed eagerly, without going
// through the upload endpoint.
type IngestWatcher struct {
	docs  DocumentSink
	store ObjectStore
	rag   RAGService
}

// NewIngestWatcher creates a watcher over the given collaborators.
func NewIngestWatcher(docs DocumentSink, store ObjectStore, rag RAGService) *IngestWatcher {
	return &IngestWatcher{docs: docs, store: store, rag: rag}
}

// Watch blocks until ctx is cancelled, ingesting PDFs as they appear in
// dirPath.
func (w *IngestWatcher) Watch(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if strings.ToLower(filepath.Ext(event.Name)) != ".pdf" {
					continue
				}
				// Editors and copies often fire Create followed by Write;
				// both mean the file content is (or will shortly be) there.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: new pdf %s, ingesting...", event.Name)
					if err := w.ingestFile(ctx, event.Name); err != nil {
						log.Printf("WATCHER ERROR: failed to ingest %s: %v", event.Name, err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: context cancelled, shutting down watcher")
				return
			}
		}
	}()

	log.Printf("WATCHER: watching directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		log.Printf("WATCHER ERROR: failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

func (w *IngestWatcher) ingestFile(ctx context.Context, path string) error {
	// Give the writer a moment to finish; partial PDFs fail extraction.
	time.Sleep(200 * time.Millisecond)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	text, err := ExtractTextFromPDF(data)
	if err != nil {
		return err
	}

	filename := filepath.Base(path)
	docID := uuid.New().String()

	url, err := w.store.Upload(ctx, docID+".pdf", data)
	if err != nil {
		return err
	}

	doc := &models.Document{
		ID:         docID,
		Filename:   filename,
		Content:    text,
		StorageURL: url,
	}
	if err := w.docs.AddDocument(ctx, doc); err != nil {
		return err
	}

	if err := w.rag.PrepareIndex(ctx, docID); err != nil {
		return err
	}
	log.Printf("WATCHER: ingested %s as document %s", filename, docID)
	return nil
}
