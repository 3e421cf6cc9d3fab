package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/documentqaflow/internal/models"
	"github.com/Lllllllleong/documentqaflow/internal/records"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreStore keeps document records at {collection}/{ownerId}/documents/{documentId}.
// The owner document is only a partition; it holds no fields.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

// docRef escapes both ids so a '/' in either can never change the path depth.
func (s *FirestoreStore) docRef(ownerID, documentID string) *firestore.DocumentRef {
	return s.ownerDocs(ownerID).Doc(url.PathEscape(documentID))
}

func (s *FirestoreStore) ownerDocs(ownerID string) *firestore.CollectionRef {
	return s.client.Collection(s.collection).Doc(url.PathEscape(ownerID)).Collection("documents")
}

func (s *FirestoreStore) Get(ctx context.Context, ownerID, documentID string) (*models.Document, error) {
	snap, err := s.docRef(ownerID, documentID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, records.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &doc, nil
}

// Upsert overwrites every field except chatHistory, so a repeated pipeline
// run for the same document never erases the conversation.
func (s *FirestoreStore) Upsert(ctx context.Context, doc *models.Document) error {
	data := map[string]interface{}{
		"ownerId":    doc.OwnerID,
		"documentId": doc.DocumentID,
		"filename":   doc.Filename,
		"status":     string(doc.Status),
		"summary":    doc.Summary,
		"uploadedAt": doc.UploadedAt,
	}
	if _, err := s.docRef(doc.OwnerID, doc.DocumentID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func (s *FirestoreStore) UpdateField(ctx context.Context, ownerID, documentID, field string, value any) error {
	if st, ok := value.(models.Status); ok {
		value = string(st)
	}
	_, err := s.docRef(ownerID, documentID).Update(ctx, []firestore.Update{
		{Path: field, Value: value},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return records.ErrNotFound
		}
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	return nil
}

// AppendChatTurn appends inside a transaction. Concurrent appends to the same
// record conflict and are retried by the client, so no turn is lost.
func (s *FirestoreStore) AppendChatTurn(ctx context.Context, ownerID, documentID string, turn models.ChatTurn) (int, error) {
	ref := s.docRef(ownerID, documentID)
	var length int
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return records.ErrNotFound
			}
			return err
		}
		var doc models.Document
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		history := append(doc.ChatHistory, turn)
		length = len(history)
		return tx.Update(ref, []firestore.Update{
			{Path: "chatHistory", Value: history},
		})
	})
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return 0, records.ErrNotFound
		}
		return 0, fmt.Errorf("failed to append chat turn: %w", err)
	}
	return length, nil
}

// List returns the owner's records, newest upload first.
func (s *FirestoreStore) List(ctx context.Context, ownerID string) ([]models.Document, error) {
	it := s.ownerDocs(ownerID).Documents(ctx)
	defer it.Stop()

	var docs []models.Document
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}
		var doc models.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", snap.Ref.ID, err)
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}
