package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentqaflow/internal/docid"
)

// PDFContentType is the only content type a signed upload URL accepts.
const PDFContentType = "application/pdf"

// UploadGrant is a time-limited permission to write one document.
type UploadGrant struct {
	URL string
	ID  docid.Identifier
}

// IngestionService issues signed upload URLs. It writes no record; the
// record appears once the processing pipeline has run.
type IngestionService struct {
	objects ObjectStore
	ttl     time.Duration
}

func NewIngestionService(objects ObjectStore, ttl time.Duration) *IngestionService {
	return &IngestionService{objects: objects, ttl: ttl}
}

// RequestUpload encodes a fresh identifier for (ownerID, filename) and signs
// a PUT URL for exactly that object key. ownerID is trusted as supplied.
func (s *IngestionService) RequestUpload(ctx context.Context, ownerID, filename string) (*UploadGrant, error) {
	if err := required("user_id", ownerID, "filename", filename); err != nil {
		return nil, err
	}

	id := docid.Encode(ownerID, filename)
	url, err := s.objects.SignedPutURL(ctx, id.Key, PDFContentType, s.ttl)
	if err != nil {
		slog.Error("Failed to issue upload URL", "ownerId", ownerID, "documentId", id.Key, "error", err)
		return nil, upstream("failed to issue upload URL", err)
	}

	slog.Info("Issued upload URL.", "ownerId", ownerID, "documentId", id.Key, "ttl", s.ttl.String())
	return &UploadGrant{URL: url, ID: id}, nil
}
