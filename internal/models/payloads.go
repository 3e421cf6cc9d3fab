package models

// These structs define the JSON payloads exchanged with the browser client
// and with push-style processing triggers.

// UploadURLRequest is the input for POST /upload-url.
type UploadURLRequest struct {
	Filename string `json:"filename"`
	UserID   string `json:"user_id"`
}

// UploadURLResponse carries the signed upload URL and the document id the
// client must use for every later call.
type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

// ListResponse is the output of GET /list.
type ListResponse struct {
	Files []Document `json:"files"`
}

// SummaryResponse is the output of GET /summary.
type SummaryResponse struct {
	Status      Status     `json:"status"`
	SummaryText string     `json:"summary_text"`
	ChatHistory []ChatTurn `json:"chat_history"`
}

// ChatRequest is the input for POST /chat.
type ChatRequest struct {
	FileID   string `json:"file_id"`
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

// ChatResponse is the output of POST /chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// ProcessRequest is the input for POST /process. Key is percent-encoded the
// way object-created notifications deliver it.
type ProcessRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ProcessResponse is the output of POST /process.
type ProcessResponse struct {
	Status     Status `json:"status,omitempty"`
	DocumentID string `json:"file_id"`
	OwnerID    string `json:"user_id"`
	Recorded   bool   `json:"recorded"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
