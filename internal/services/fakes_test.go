package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Lllllllleong/documentqaflow/internal/gcp"
	"github.com/Lllllllleong/documentqaflow/internal/models"
	"github.com/Lllllllleong/documentqaflow/internal/records"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	fetches int
	signErr error
	signed  []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (o *fakeObjects) put(key string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = data
}

func (o *fakeObjects) SignedPutURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if o.signErr != nil {
		return "", o.signErr
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.signed = append(o.signed, key)
	return fmt.Sprintf("https://storage.example/%s?ct=%s&ttl=%s", key, contentType, ttl), nil
}

func (o *fakeObjects) Fetch(_ context.Context, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches++
	data, ok := o.objects[key]
	if !ok {
		return nil, gcp.ErrObjectNotFound
	}
	return data, nil
}

// fakeExtractor treats the object bytes as form-feed separated page text.
type fakeExtractor struct {
	err error
}

func (e fakeExtractor) ExtractPages(data []byte) ([]string, error) {
	if e.err != nil {
		return nil, e.err
	}
	return strings.Split(string(data), "\f"), nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ int32) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// spyStore wraps the in-memory store and counts calls.
type spyStore struct {
	*records.Memory
	mu        sync.Mutex
	gets      int
	upserts   int
	getErr    error
	upsertErr error
	appendErr error
}

func newSpyStore() *spyStore {
	return &spyStore{Memory: records.NewMemory()}
}

func (s *spyStore) Get(ctx context.Context, ownerID, documentID string) (*models.Document, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Memory.Get(ctx, ownerID, documentID)
}

func (s *spyStore) Upsert(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	s.upserts++
	err := s.upsertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Upsert(ctx, doc)
}

func (s *spyStore) AppendChatTurn(ctx context.Context, ownerID, documentID string, turn models.ChatTurn) (int, error) {
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	return s.Memory.AppendChatTurn(ctx, ownerID, documentID, turn)
}

type fakeNotifier struct {
	notified []string
	err      error
}

func (n *fakeNotifier) NotifyCompleted(_ context.Context, doc *models.Document) error {
	n.notified = append(n.notified, doc.DocumentID)
	return n.err
}

var errBoom = errors.New("boom")
