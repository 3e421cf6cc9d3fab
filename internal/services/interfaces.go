package services

import (
	"context"
	"time"

	"github.com/Lllllllleong/documentqaflow/internal/models"
)

// RecordStore persists document records partitioned by owner.
type RecordStore interface {
	Get(ctx context.Context, ownerID, documentID string) (*models.Document, error)
	Upsert(ctx context.Context, doc *models.Document) error
	UpdateField(ctx context.Context, ownerID, documentID, field string, value any) error
	AppendChatTurn(ctx context.Context, ownerID, documentID string, turn models.ChatTurn) (int, error)
	List(ctx context.Context, ownerID string) ([]models.Document, error)
}

// ObjectStore holds uploaded document bytes.
type ObjectStore interface {
	SignedPutURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// TextExtractor returns the text of each page, in page order.
type TextExtractor interface {
	ExtractPages(data []byte) ([]string, error)
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxOutputTokens int32) (string, error)
}

// CompletionNotifier is told about every document that reaches COMPLETED.
type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, doc *models.Document) error
}
