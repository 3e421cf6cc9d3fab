// Package records holds the record-store sentinel errors and an in-memory
// store with the same semantics as the Firestore-backed one.
package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Lllllllleong/documentqaflow/internal/models"
)

// ErrNotFound is returned when no record exists for (ownerId, documentId).
var ErrNotFound = errors.New("record not found")

// Updatable field names. They match the Firestore field paths of models.Document.
const (
	FieldStatus   = "status"
	FieldSummary  = "summary"
	FieldFilename = "filename"
)

type key struct {
	owner string
	doc   string
}

// Memory is a process-local record store. It is safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	docs map[key]models.Document
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[key]models.Document)}
}

func (m *Memory) Get(_ context.Context, ownerID, documentID string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[key{ownerID, documentID}]
	if !ok {
		return nil, ErrNotFound
	}
	out := doc
	out.ChatHistory = append([]models.ChatTurn(nil), doc.ChatHistory...)
	return &out, nil
}

// Upsert writes every field except the chat history, which is kept from any
// existing record.
func (m *Memory) Upsert(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{doc.OwnerID, doc.DocumentID}
	next := *doc
	next.ChatHistory = nil
	if prev, ok := m.docs[k]; ok {
		next.ChatHistory = prev.ChatHistory
	}
	m.docs[k] = next
	return nil
}

func (m *Memory) UpdateField(_ context.Context, ownerID, documentID, field string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{ownerID, documentID}
	doc, ok := m.docs[k]
	if !ok {
		return ErrNotFound
	}
	switch field {
	case FieldStatus:
		switch v := value.(type) {
		case models.Status:
			doc.Status = v
		case string:
			doc.Status = models.Status(v)
		default:
			return fmt.Errorf("field %s: unsupported value type %T", field, value)
		}
	case FieldSummary, FieldFilename:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s: unsupported value type %T", field, value)
		}
		if field == FieldSummary {
			doc.Summary = s
		} else {
			doc.Filename = s
		}
	default:
		return fmt.Errorf("field %s cannot be updated", field)
	}
	m.docs[k] = doc
	return nil
}

func (m *Memory) AppendChatTurn(_ context.Context, ownerID, documentID string, turn models.ChatTurn) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{ownerID, documentID}
	doc, ok := m.docs[k]
	if !ok {
		return 0, ErrNotFound
	}
	doc.ChatHistory = append(append([]models.ChatTurn(nil), doc.ChatHistory...), turn)
	m.docs[k] = doc
	return len(doc.ChatHistory), nil
}

// List returns the owner's records, newest upload first.
func (m *Memory) List(_ context.Context, ownerID string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Document
	for k, doc := range m.docs {
		if k.owner == ownerID {
			doc.ChatHistory = append([]models.ChatTurn(nil), doc.ChatHistory...)
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}
