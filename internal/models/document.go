package models

import "time"

// Status is the processing state of a document record.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Document is the record for one uploaded PDF, stored in Firestore under its
// owner's partition. It is written once by the processing pipeline and then
// only grows its chat history.
type Document struct {
	OwnerID     string     `firestore:"ownerId" json:"user_id"`
	DocumentID  string     `firestore:"documentId" json:"file_id"`
	Filename    string     `firestore:"filename" json:"filename"`
	Status      Status     `firestore:"status" json:"status"`
	Summary     string     `firestore:"summary" json:"summary"`
	UploadedAt  time.Time  `firestore:"uploadedAt" json:"upload_date"`
	ChatHistory []ChatTurn `firestore:"chatHistory,omitempty" json:"chat_history,omitempty"`
}

// ChatTurn is one question and answer exchange about a document.
type ChatTurn struct {
	Question  string    `firestore:"question" json:"question"`
	Answer    string    `firestore:"answer" json:"answer"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
}
