package controller

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docuchat/server/models"
	"github.com/docuchat/server/repository"
	"github.com/docuchat/server/services"
)

// RAGController handles the HTTP surface: uploads, questions, listings and
// transcripts. All business logic lives in the service layer.
type RAGController struct {
	ragService services.RAGService
	docs       repository.DocumentRepository
	chats      repository.ChatRepository
	store      services.ObjectStore
}

// NewRAGController is called from main.go to inject the dependencies.
func NewRAGController(rag services.RAGService, docs repository.DocumentRepository, chats repository.ChatRepository, store services.ObjectStore) *RAGController {
	return &RAGController{ragService: rag, docs: docs, chats: chats, store: store}
}

// Upload is the handler for POST /upload. It accepts a multipart PDF, rejects
// anything else before extraction runs, and persists the document record.
func (c *RAGController) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing file field: " + err.Error()})
		return
	}
	if fileHeader.Header.Get("Content-Type") != "application/pdf" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are supported"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	text, err := services.ExtractTextFromPDF(data)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	docID := uuid.New().String()
	url, err := c.store.Upload(ctx.Request.Context(), docID+".pdf", data)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	doc := &models.Document{
		ID:         docID,
		Filename:   fileHeader.Filename,
		Content:    text,
		StorageURL: url,
	}
	if err := c.docs.AddDocument(ctx.Request.Context(), doc); err != nil {
		log.Printf("CONTROLLER: failed to persist document %s: %v", docID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	ctx.JSON(http.StatusCreated, models.UploadResponse{DocID: docID, Filename: fileHeader.Filename})
}

// Ask is the handler for POST /ask. The question turn is persisted before the
// answer is attempted so the transcript stays complete even when generation
// fails; the answer turn is persisted only on success.
func (c *RAGController) Ask(ctx *gin.Context) {
	var req models.AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	reqCtx := ctx.Request.Context()

	// Reject unknown documents before any chat row or embedding work.
	if _, err := c.docs.GetDocument(reqCtx, req.DocID); err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	questionChat, err := c.chats.AddChat(reqCtx, req.DocID, req.UserID, req.Question, true)
	if err != nil {
		log.Printf("CONTROLLER: failed to persist question for document %s: %v", req.DocID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store chat"})
		return
	}

	if req.Stream {
		c.askStream(ctx, req)
		return
	}

	answer, err := c.ragService.AnswerOnce(reqCtx, req.DocID, req.Question)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	answerChat, err := c.chats.AddChat(reqCtx, req.DocID, nil, answer, false)
	if err != nil {
		log.Printf("CONTROLLER: failed to persist answer for document %s: %v", req.DocID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store chat"})
		return
	}

	ctx.JSON(http.StatusOK, models.AskResponse{
		Answer:       answer,
		QuestionChat: *questionChat,
		AnswerChat:   *answerChat,
	})
}

func (c *RAGController) askStream(ctx *gin.Context, req models.AskRequest) {
	reqCtx := ctx.Request.Context()

	stream, err := c.ragService.AnswerStream(reqCtx, req.DocID, req.Question)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.Header("Content-Type", "text/plain; charset=utf-8")
	ctx.Writer.WriteHeader(http.StatusOK)

	var full strings.Builder
	failed := false
	for chunk := range stream {
		if chunk.Err != nil {
			// Headers are already out; all we can do is log, stop the body
			// and skip persisting a partial answer.
			log.Printf("CONTROLLER: stream for document %s failed: %v", req.DocID, chunk.Err)
			failed = true
			break
		}
		full.WriteString(chunk.Text)
		if _, err := ctx.Writer.WriteString(chunk.Text); err != nil {
			failed = true
			break
		}
		ctx.Writer.Flush()
	}

	if failed || reqCtx.Err() != nil {
		return
	}
	if _, err := c.chats.AddChat(reqCtx, req.DocID, nil, full.String(), false); err != nil {
		log.Printf("CONTROLLER: failed to persist streamed answer for document %s: %v", req.DocID, err)
	}
}

// ListDocuments is the handler for GET /documents, newest first.
func (c *RAGController) ListDocuments(ctx *gin.Context) {
	docs, err := c.docs.ListDocuments(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	ctx.JSON(http.StatusOK, models.ListDocumentsResponse{Count: len(docs), Documents: docs})
}

// GetChats is the handler for GET /chats/:doc_id, in insertion order.
func (c *RAGController) GetChats(ctx *gin.Context) {
	chats, err := c.chats.GetChatsByDocument(ctx.Request.Context(), ctx.Param("doc_id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	ctx.JSON(http.StatusOK, models.ChatsResponse{Count: len(chats), Chats: chats})
}

// statusForError maps the service error kinds to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTextExtraction):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrContextTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrContentFetch), errors.Is(err, services.ErrLLMCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
