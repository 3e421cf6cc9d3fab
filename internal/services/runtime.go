package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/documentqaflow/internal/config"
	"github.com/Lllllllleong/documentqaflow/internal/extract"
	"github.com/Lllllllleong/documentqaflow/internal/gcp"
	"github.com/Lllllllleong/documentqaflow/internal/llm"
	"github.com/Lllllllleong/documentqaflow/internal/records"
)

// Runtime holds every service of one process, built from a single Config.
type Runtime struct {
	Ingestion *IngestionService
	Processor *ProcessorFunction
	Status    *StatusService
	List      *ListService
	Query     *QueryFunction

	closers []func() error
}

// Deps are the collaborators a Runtime is assembled from.
type Deps struct {
	Objects   ObjectStore
	Extractor TextExtractor
	Generator Generator
	Records   RecordStore
	Notifier  CompletionNotifier
}

// NewRuntimeWith assembles services from already-built collaborators.
func NewRuntimeWith(cfg *config.Config, deps Deps) *Runtime {
	return &Runtime{
		Ingestion: NewIngestionService(deps.Objects, cfg.SignedURLTTL),
		Processor: NewProcessor(deps.Objects, deps.Extractor, deps.Generator, deps.Records, deps.Notifier, ProcessorConfig{
			UploadBucket:    cfg.UploadBucket,
			MaxTextChars:    cfg.MaxTextChars,
			MaxOutputTokens: cfg.MaxOutputTokens,
			SummaryLanguage: cfg.SummaryLanguage,
		}),
		Status: NewStatusService(deps.Records),
		List:   NewListService(deps.Records),
		Query: NewQuery(deps.Objects, deps.Extractor, deps.Generator, deps.Records,
			NewTextCache(cfg.TextCacheSize, cfg.TextCacheTTL),
			QueryConfig{
				MaxTextChars:    cfg.MaxTextChars,
				MaxOutputTokens: cfg.MaxOutputTokens,
				HistoryTurns:    cfg.HistoryTurns,
			}),
	}
}

// NewRuntime creates the cloud clients selected by cfg and assembles the services.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var closers []func() error
	fail := func(err error) (*Runtime, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to create Storage client: %w", err))
	}
	closers = append(closers, storageClient.Close)
	deps := Deps{
		Objects:   gcp.NewGCSObjects(storageClient, cfg.UploadBucket, cfg.SignerEmail),
		Extractor: extract.NewPDFExtractor(),
	}

	switch cfg.StoreBackend {
	case config.StoreMemory:
		deps.Records = records.NewMemory()
	default:
		firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, firestoreClient.Close)
		deps.Records = gcp.NewFirestoreStore(firestoreClient, cfg.FirestoreCollection)
	}

	switch cfg.GenerationProvider {
	case config.ProviderOpenAI:
		deps.Generator = llm.NewOpenAIGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel)
	default:
		vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.GenerationModel)
		if err != nil {
			return fail(fmt.Errorf("failed to create vertex client: %w", err))
		}
		closers = append(closers, vertexClient.Close)
		deps.Generator = vertexClient
	}

	if cfg.WorkflowID != "" {
		notifier, err := gcp.NewWorkflowNotifier(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, notifier.Close)
		deps.Notifier = notifier
	}

	rt := NewRuntimeWith(cfg, deps)
	rt.closers = closers
	slog.Info("Runtime initialized.",
		"storeBackend", cfg.StoreBackend,
		"generationProvider", cfg.GenerationProvider,
		"model", cfg.GenerationModel,
		"uploadBucket", cfg.UploadBucket,
		"workflowId", cfg.WorkflowID,
	)
	return rt, nil
}

// Close releases the cloud clients in reverse creation order.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewRuntimeFromEnv loads the configuration from the environment and builds
// the runtime. Functions call it once per instance.
func NewRuntimeFromEnv(ctx context.Context) (*Runtime, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	rt, err := NewRuntime(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return rt, cfg, nil
}

var (
	_ RecordStore        = (*gcp.FirestoreStore)(nil)
	_ RecordStore        = (*records.Memory)(nil)
	_ ObjectStore        = (*gcp.GCSObjects)(nil)
	_ Generator          = (*gcp.VertexClient)(nil)
	_ Generator          = (*llm.OpenAIGenerator)(nil)
	_ CompletionNotifier = (*gcp.WorkflowNotifier)(nil)
	_ TextExtractor      = (*extract.PDFExtractor)(nil)
)
