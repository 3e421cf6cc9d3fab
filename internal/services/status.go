package services

import (
	"context"
	"errors"

	"github.com/Lllllllleong/documentqaflow/internal/models"
	"github.com/Lllllllleong/documentqaflow/internal/records"
)

// StatusService is the read-only projection polled by clients.
type StatusService struct {
	records RecordStore
}

func NewStatusService(store RecordStore) *StatusService {
	return &StatusService{records: store}
}

// Summary returns the record's status, summary and chat history. An absent
// record reads as PROCESSING because the pipeline may not have run yet.
func (s *StatusService) Summary(ctx context.Context, ownerID, documentID string) (*models.SummaryResponse, error) {
	if err := required("user_id", ownerID, "file_id", documentID); err != nil {
		return nil, err
	}

	doc, err := s.records.Get(ctx, ownerID, documentID)
	if errors.Is(err, records.ErrNotFound) {
		return &models.SummaryResponse{
			Status:      models.StatusProcessing,
			ChatHistory: []models.ChatTurn{},
		}, nil
	}
	if err != nil {
		return nil, upstream("failed to read record", err)
	}

	resp := &models.SummaryResponse{
		Status:      doc.Status,
		SummaryText: doc.Summary,
		ChatHistory: doc.ChatHistory,
	}
	if resp.Status == "" {
		resp.Status = models.StatusProcessing
	}
	if resp.ChatHistory == nil {
		resp.ChatHistory = []models.ChatTurn{}
	}
	return resp, nil
}

// ListService lists an owner's documents.
type ListService struct {
	records RecordStore
}

func NewListService(store RecordStore) *ListService {
	return &ListService{records: store}
}

// List returns the owner's records, newest upload first.
func (s *ListService) List(ctx context.Context, ownerID string) ([]models.Document, error) {
	if err := required("user_id", ownerID); err != nil {
		return nil, err
	}
	docs, err := s.records.List(ctx, ownerID)
	if err != nil {
		return nil, upstream("failed to list records", err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}
