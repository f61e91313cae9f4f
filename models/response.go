package models

// UploadResponse is returned by POST /upload on success.
type UploadResponse struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
}

// AskResponse is returned by POST /ask in non-streaming mode. Both chat rows
// are included so the client can append them without refetching the transcript.
type AskResponse struct {
	Answer       string `json:"answer"`
	QuestionChat Chat   `json:"question_chat"`
	AnswerChat   Chat   `json:"answer_chat"`
}

// ListDocumentsResponse is returned by GET /documents, newest first.
type ListDocumentsResponse struct {
	Count     int               `json:"count"`
	Documents []DocumentSummary `json:"documents"`
}

// ChatsResponse is returned by GET /chats/:doc_id in insertion order.
type ChatsResponse struct {
	Count int    `json:"count"`
	Chats []Chat `json:"chats"`
}
