package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/documentqaflow/internal/models"
	"github.com/Lllllllleong/documentqaflow/internal/records"
)

const queryInstruction = "You are a document analysis expert. Answer the user's question using the document below and the previous conversation."

type QueryConfig struct {
	MaxTextChars    int
	MaxOutputTokens int32
	HistoryTurns    int
}

// QueryRequest is one question about a document. OwnerID is optional and only
// scopes the chat history.
type QueryRequest struct {
	DocumentID string
	Question   string
	OwnerID    string
}

// QueryResult separates "answered" from "answered and remembered".
type QueryResult struct {
	Answer           string
	HistoryPersisted bool
	// HistoryErr is why the turn was not persisted; nil when persisted or when
	// no owner was given.
	HistoryErr error
}

// QueryFunction answers questions grounded on a document's text and recent chat turns.
type QueryFunction struct {
	objects   ObjectStore
	extractor TextExtractor
	generator Generator
	records   RecordStore
	cache     *TextCache
	config    QueryConfig
	now       func() time.Time
}

// NewQuery wires the query path. cache may be nil.
func NewQuery(objects ObjectStore, extractor TextExtractor, generator Generator, store RecordStore, cache *TextCache, config QueryConfig) *QueryFunction {
	return &QueryFunction{
		objects:   objects,
		extractor: extractor,
		generator: generator,
		records:   store,
		cache:     cache,
		config:    config,
		now:       time.Now,
	}
}

func (f *QueryFunction) Ask(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if err := required("file_id", req.DocumentID, "question", req.Question); err != nil {
		return nil, err
	}
	logCtx := slog.With("documentId", req.DocumentID, "ownerId", req.OwnerID)

	var (
		text    string
		history []models.ChatTurn
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		text, err = f.documentText(gctx, req.DocumentID)
		return err
	})
	if req.OwnerID != "" {
		g.Go(func() error {
			doc, err := f.records.Get(gctx, req.OwnerID, req.DocumentID)
			if err != nil {
				if !errors.Is(err, records.ErrNotFound) {
					logCtx.Warn("Failed to read chat history; answering without it", "error", err)
				}
				return nil
			}
			history = doc.ChatHistory
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logCtx.Error("Failed to load document text", "error", err)
		return nil, err
	}

	answer, err := f.generator.Generate(ctx, f.prompt(text, history, req.Question), f.config.MaxOutputTokens)
	if err != nil {
		logCtx.Error("Failed to generate answer", "error", err)
		return nil, upstream("failed to generate answer", err)
	}

	answer = cleanGenerated(answer)
	if answer == "" {
		return nil, upstream("failed to generate answer", errors.New("model returned an empty answer"))
	}
	result := &QueryResult{Answer: answer}
	if req.OwnerID == "" {
		return result, nil
	}

	turn := models.ChatTurn{Question: req.Question, Answer: answer, Timestamp: f.now().UTC()}
	n, err := f.records.AppendChatTurn(ctx, req.OwnerID, req.DocumentID, turn)
	if err != nil {
		chatHistoryPersistFailures.Inc()
		logCtx.Warn("Answer returned but chat turn was not persisted", "error", err)
		result.HistoryErr = err
		return result, nil
	}
	result.HistoryPersisted = true
	logCtx.Info("Answered question.", "historyLength", n)
	return result, nil
}

func (f *QueryFunction) documentText(ctx context.Context, documentID string) (string, error) {
	if text, ok := f.cache.Get(documentID); ok {
		return text, nil
	}
	data, err := f.objects.Fetch(ctx, documentID)
	if err != nil {
		return "", upstream("failed to download document", err)
	}
	text, err := extractText(f.extractor, data, f.config.MaxTextChars)
	if err != nil {
		return "", err
	}
	f.cache.Set(documentID, text)
	return text, nil
}

func (f *QueryFunction) prompt(text string, history []models.ChatTurn, question string) string {
	var b strings.Builder
	b.WriteString(queryInstruction)
	b.WriteString("\n\n[Document]\n")
	b.WriteString(text)
	b.WriteString("\n\n[Previous conversation]\n")
	b.WriteString(renderHistory(history, f.config.HistoryTurns))
	fmt.Fprintf(&b, "\nUser question: %s\n", question)
	return b.String()
}

// renderHistory keeps the last n turns, oldest first.
func renderHistory(history []models.ChatTurn, n int) string {
	if n <= 0 || len(history) == 0 {
		return ""
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	var b strings.Builder
	for _, h := range history {
		fmt.Fprintf(&b, "User: %s\nAI: %s\n", h.Question, h.Answer)
	}
	return b.String()
}
