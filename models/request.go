package models

// AskRequest is the body of POST /ask.
type AskRequest struct {
	DocID    string  `json:"doc_id" binding:"required"`
	Question string  `json:"question" binding:"required"`
	Stream   bool    `json:"stream"`
	UserID   *string `json:"user_id,omitempty"`
}
