package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/docuchat/server/models"
	"github.com/docuchat/server/services"
)

// DocumentRepository persists document metadata and extracted text.
type DocumentRepository interface {
	AddDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.DocumentSummary, error)
}

// ChatRepository persists the per-document transcript.
type ChatRepository interface {
	AddChat(ctx context.Context, docID string, userID *string, content string, isUserMessage bool) (*models.Chat, error)
	GetChatsByDocument(ctx context.Context, docID string) ([]models.Chat, error)
}

type repo struct{ db *gorm.DB }

// New creates repositories backed by the given gorm connection.
func New(db *gorm.DB) (DocumentRepository, ChatRepository) {
	r := &repo{db: db}
	return r, r
}

func (r *repo) AddDocument(ctx context.Context, doc *models.Document) error {
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *repo) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, services.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	return &doc, nil
}

func (r *repo) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	var docs []models.Document
	if err := r.db.WithContext(ctx).Order("upload_date DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]models.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.DocumentSummary{ID: d.ID, Filename: d.Filename, UploadDate: d.UploadDate})
	}
	return out, nil
}

func (r *repo) AddChat(ctx context.Context, docID string, userID *string, content string, isUserMessage bool) (*models.Chat, error) {
	chat := models.Chat{
		DocID:         docID,
		UserID:        userID,
		Content:       content,
		IsUserMessage: isUserMessage,
		Timestamp:     time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&chat).Error; err != nil {
		return nil, fmt.Errorf("insert chat for document %s: %w", docID, err)
	}
	return &chat, nil
}

func (r *repo) GetChatsByDocument(ctx context.Context, docID string) ([]models.Chat, error) {
	var chats []models.Chat
	if err := r.db.WithContext(ctx).Where("doc_id = ?", docID).Order("id ASC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("load chats for document %s: %w", docID, err)
	}
	return chats, nil
}
