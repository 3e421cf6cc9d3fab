package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lllllllleong/documentqaflow/internal/docid"
	"github.com/Lllllllleong/documentqaflow/internal/models"
)

type queryFixture struct {
	objects   *fakeObjects
	generator *fakeGenerator
	store     *spyStore
	query     *QueryFunction
	id        docid.Identifier
}

func newQueryFixture(t *testing.T, cache *TextCache) *queryFixture {
	t.Helper()
	fx := &queryFixture{
		objects:   newFakeObjects(),
		generator: &fakeGenerator{reply: "It is about revenue."},
		store:     newSpyStore(),
		id:        docid.Encode("u1", "report.pdf"),
	}
	fx.objects.put(fx.id.Key, []byte("Revenue grew 12% in Q3."))
	fx.query = NewQuery(fx.objects, fakeExtractor{}, fx.generator, fx.store, cache, QueryConfig{
		MaxTextChars:    15000,
		MaxOutputTokens: 1000,
		HistoryTurns:    2,
	})
	return fx
}

func (fx *queryFixture) seedRecord(t *testing.T, turns int) {
	t.Helper()
	ctx := context.Background()
	if err := fx.store.Upsert(ctx, &models.Document{
		OwnerID: "u1", DocumentID: fx.id.Key, Filename: "report.pdf", Status: models.StatusCompleted, Summary: "s",
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	for i := 1; i <= turns; i++ {
		turn := models.ChatTurn{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i), Timestamp: time.Now()}
		if _, err := fx.store.AppendChatTurn(ctx, "u1", fx.id.Key, turn); err != nil {
			t.Fatalf("AppendChatTurn: %v", err)
		}
	}
}

func TestQuery_Validation(t *testing.T) {
	fx := newQueryFixture(t, nil)
	for _, req := range []QueryRequest{
		{Question: "what?"},
		{DocumentID: fx.id.Key},
		{DocumentID: fx.id.Key, Question: "   "},
	} {
		if _, err := fx.query.Ask(context.Background(), req); !errors.Is(err, ErrValidation) {
			t.Errorf("Ask(%+v) = %v, want ErrValidation", req, err)
		}
	}
	if fx.objects.fetches != 0 || len(fx.generator.prompts) != 0 {
		t.Error("invalid request reached a collaborator")
	}
}

func TestQuery_WithoutOwnerSkipsHistory(t *testing.T) {
	fx := newQueryFixture(t, nil)

	res, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: "what is this about?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer != "It is about revenue." {
		t.Errorf("Answer = %q", res.Answer)
	}
	if res.HistoryPersisted || res.HistoryErr != nil {
		t.Errorf("history result = %v/%v, want false/nil", res.HistoryPersisted, res.HistoryErr)
	}
	if fx.store.gets != 0 {
		t.Errorf("history reads = %d, want 0", fx.store.gets)
	}
	prompt := fx.generator.lastPrompt()
	if !strings.Contains(prompt, "Revenue grew 12% in Q3.") || !strings.HasSuffix(prompt, "User question: what is this about?\n") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestQuery_UsesLastTwoTurns(t *testing.T) {
	fx := newQueryFixture(t, nil)
	fx.seedRecord(t, 3)

	res, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: "and then?", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !res.HistoryPersisted {
		t.Fatalf("history not persisted: %v", res.HistoryErr)
	}

	prompt := fx.generator.lastPrompt()
	if strings.Contains(prompt, "User: q1") {
		t.Error("prompt includes a turn older than the last two")
	}
	if !strings.Contains(prompt, "User: q2\nAI: a2\nUser: q3\nAI: a3\n") {
		t.Errorf("prompt history block missing, prompt = %q", prompt)
	}

	doc, err := fx.store.Get(context.Background(), "u1", fx.id.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(doc.ChatHistory) != 4 {
		t.Fatalf("len(ChatHistory) = %d, want 4", len(doc.ChatHistory))
	}
	last := doc.ChatHistory[3]
	if last.Question != "and then?" || last.Answer != "It is about revenue." || last.Timestamp.IsZero() {
		t.Errorf("appended turn = %+v", last)
	}
	if doc.ChatHistory[0].Question != "q1" {
		t.Error("prior entries were not preserved")
	}
}

func TestQuery_HistoryReadFailureSwallowed(t *testing.T) {
	fx := newQueryFixture(t, nil)
	fx.seedRecord(t, 1)
	fx.store.getErr = errBoom

	res, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: "q", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer == "" {
		t.Error("empty answer")
	}
	if strings.Contains(fx.generator.lastPrompt(), "User: q1") {
		t.Error("history used although the read failed")
	}
}

func TestQuery_MissingRecordNotPersisted(t *testing.T) {
	fx := newQueryFixture(t, nil)

	res, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: "q", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer == "" || res.HistoryPersisted || res.HistoryErr == nil {
		t.Errorf("result = %+v", res)
	}
}

func TestQuery_AppendFailureStillAnswers(t *testing.T) {
	fx := newQueryFixture(t, nil)
	fx.seedRecord(t, 0)
	fx.store.appendErr = errBoom

	res, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: "q", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer != "It is about revenue." || res.HistoryPersisted || !errors.Is(res.HistoryErr, errBoom) {
		t.Errorf("result = %+v", res)
	}
}

func TestQuery_UpstreamErrors(t *testing.T) {
	t.Run("missing object", func(t *testing.T) {
		fx := newQueryFixture(t, nil)
		_, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: "u1_____x_____gone.pdf", Question: "q"})
		if !errors.Is(err, ErrUpstream) {
			t.Errorf("error = %v, want ErrUpstream", err)
		}
	})
	t.Run("no text", func(t *testing.T) {
		fx := newQueryFixture(t, nil)
		fx.objects.put(fx.id.Key, []byte("  "))
		_, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: "q"})
		if !errors.Is(err, ErrNoText) || !errors.Is(err, ErrUpstream) {
			t.Errorf("error = %v, want ErrNoText", err)
		}
	})
	t.Run("generation", func(t *testing.T) {
		fx := newQueryFixture(t, nil)
		fx.seedRecord(t, 0)
		fx.generator.err = errBoom
		_, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: "q", OwnerID: "u1"})
		if !errors.Is(err, ErrUpstream) || !errors.Is(err, errBoom) {
			t.Errorf("error = %v", err)
		}
		doc, _ := fx.store.Get(context.Background(), "u1", fx.id.Key)
		if len(doc.ChatHistory) != 0 {
			t.Error("turn persisted for a failed generation")
		}
	})
}

func TestQuery_TextCache(t *testing.T) {
	fx := newQueryFixture(t, NewTextCache(8, time.Minute))
	req := QueryRequest{DocumentID: fx.id.Key, Question: "q"}

	for i := 0; i < 3; i++ {
		if _, err := fx.query.Ask(context.Background(), req); err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
	}
	if fx.objects.fetches != 1 {
		t.Errorf("fetches = %d, want 1", fx.objects.fetches)
	}
}

func TestQuery_ConcurrentAppendsKeepEveryTurn(t *testing.T) {
	fx := newQueryFixture(t, nil)
	fx.seedRecord(t, 0)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := fx.query.Ask(context.Background(), QueryRequest{DocumentID: fx.id.Key, Question: fmt.Sprintf("q%d", i), OwnerID: "u1"})
			if err != nil || !res.HistoryPersisted {
				t.Errorf("Ask %d: %v / %+v", i, err, res)
			}
		}(i)
	}
	wg.Wait()

	doc, err := fx.store.Get(context.Background(), "u1", fx.id.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(doc.ChatHistory) != n {
		t.Errorf("len(ChatHistory) = %d, want %d", len(doc.ChatHistory), n)
	}
}

func TestRenderHistory(t *testing.T) {
	turns := []models.ChatTurn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "User: q2\nAI: a2\n"},
		{2, "User: q1\nAI: a1\nUser: q2\nAI: a2\n"},
		{5, "User: q1\nAI: a1\nUser: q2\nAI: a2\n"},
	}
	for _, tt := range tests {
		if got := renderHistory(turns, tt.n); got != tt.want {
			t.Errorf("renderHistory(n=%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
