package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentqaflow/internal/docid"
	"github.com/Lllllllleong/documentqaflow/internal/models"
	"github.com/Lllllllleong/documentqaflow/internal/records"
)

const summaryPromptTemplate = `The following text is the content of a document. Summarize its key points in at most 3 sentences. Respond in %s.

<text>
%s
</text>`

type ProcessorConfig struct {
	UploadBucket    string
	MaxTextChars    int
	MaxOutputTokens int32
	SummaryLanguage string
}

// ProcessorFunction is the processing pipeline run for every uploaded object.
type ProcessorFunction struct {
	objects   ObjectStore
	extractor TextExtractor
	generator Generator
	records   RecordStore
	notifier  CompletionNotifier
	config    ProcessorConfig
	now       func() time.Time
}

// ProcessResult describes one pipeline run.
type ProcessResult struct {
	ID     docid.Identifier
	Status models.Status
	// Recorded is false when no record was written: the event was skipped or
	// the owner could not be resolved.
	Recorded bool
	Skipped  bool
	// Cause is set when Status is FAILED.
	Cause error
}

// NewProcessor wires the pipeline. notifier may be nil.
func NewProcessor(objects ObjectStore, extractor TextExtractor, generator Generator, store RecordStore, notifier CompletionNotifier, config ProcessorConfig) *ProcessorFunction {
	return &ProcessorFunction{
		objects:   objects,
		extractor: extractor,
		generator: generator,
		records:   store,
		notifier:  notifier,
		config:    config,
		now:       time.Now,
	}
}

// Process runs the pipeline for one object key as stored (not percent-encoded).
// Download, extraction and generation failures are terminal for the run and
// are recorded as a FAILED record when the owner is known; they are not
// returned as errors. An error is returned only when the final record write
// itself fails, so an at-least-once trigger may redeliver.
func (f *ProcessorFunction) Process(ctx context.Context, bucket, key string) (*ProcessResult, error) {
	start := time.Now()
	defer func() { pipelineDuration.Observe(time.Since(start).Seconds()) }()

	logCtx := slog.With("gcsBucket", bucket, "gcsObject", key)
	if f.config.UploadBucket != "" && bucket != f.config.UploadBucket {
		logCtx.Info("Object is not in the upload bucket. Skipping.", "uploadBucket", f.config.UploadBucket)
		pipelineRunsTotal.WithLabelValues(outcomeSkipped).Inc()
		return &ProcessResult{ID: docid.Decode(key), Skipped: true}, nil
	}

	id := docid.Decode(key)
	logCtx = logCtx.With("ownerId", id.OwnerID, "documentId", id.Key)
	if !id.Resolved() {
		logCtx.Warn("Owner could not be resolved from the object key.")
	}
	logCtx.Info("Processing new document.", "filename", id.DisplayName())

	data, err := f.objects.Fetch(ctx, key)
	if err != nil {
		return f.handleError(ctx, logCtx, id, "failed to download document", err)
	}
	logCtx.Info("Downloaded document.", "bytes", len(data))

	text, err := extractText(f.extractor, data, f.config.MaxTextChars)
	if err != nil {
		return f.handleError(ctx, logCtx, id, "failed to extract text", err)
	}
	logCtx.Info("Extracted text.", "chars", len([]rune(text)))

	generated, err := f.generator.Generate(ctx, f.summaryPrompt(text), f.config.MaxOutputTokens)
	if err != nil {
		return f.handleError(ctx, logCtx, id, "failed to generate summary", err)
	}
	summary, err := checkSummary(generated)
	if err != nil {
		logCtx.Warn("Rejected generated summary", "response", generated)
		return f.handleError(ctx, logCtx, id, "failed to generate summary", err)
	}

	doc := &models.Document{
		OwnerID:    id.OwnerID,
		DocumentID: id.Key,
		Filename:   id.DisplayName(),
		Status:     models.StatusCompleted,
		Summary:    summary,
		UploadedAt: f.now().UTC(),
	}
	if err := f.records.Upsert(ctx, doc); err != nil {
		logCtx.Error("Failed to write COMPLETED record", "error", err)
		pipelineRunsTotal.WithLabelValues(outcomeUnrecorded).Inc()
		return nil, upstream("failed to write record", err)
	}
	pipelineRunsTotal.WithLabelValues(outcomeCompleted).Inc()
	logCtx.Info("Document processed.", "status", doc.Status)

	if f.notifier != nil {
		if err := f.notifier.NotifyCompleted(ctx, doc); err != nil {
			logCtx.Warn("Failed to notify completion", "error", err)
		}
	}

	return &ProcessResult{ID: id, Status: models.StatusCompleted, Recorded: true}, nil
}

// UploadBucket is the only bucket whose objects are processed.
func (f *ProcessorFunction) UploadBucket() string {
	return f.config.UploadBucket
}

func (f *ProcessorFunction) summaryPrompt(text string) string {
	return fmt.Sprintf(summaryPromptTemplate, f.config.SummaryLanguage, text)
}

// handleError turns a stage failure into a FAILED record so polling clients
// see a terminal state. With an unresolved owner nothing is written.
func (f *ProcessorFunction) handleError(ctx context.Context, logCtx *slog.Logger, id docid.Identifier, message string, originalErr error) (*ProcessResult, error) {
	cause := upstream(message, originalErr)
	logCtx.Error(message, "error", originalErr)
	result := &ProcessResult{ID: id, Status: models.StatusFailed, Cause: cause}

	if !id.Resolved() {
		logCtx.Error("Owner is unknown; no FAILED record written.")
		pipelineRunsTotal.WithLabelValues(outcomeUnrecorded).Inc()
		return result, nil
	}

	doc := &models.Document{
		OwnerID:    id.OwnerID,
		DocumentID: id.Key,
		Filename:   id.DisplayName(),
		Status:     models.StatusFailed,
		Summary:    "Processing failed: " + cause.Error(),
		UploadedAt: f.now().UTC(),
	}
	if err := f.records.Upsert(ctx, doc); err != nil {
		logCtx.Error("CRITICAL: Failed to write FAILED record after a processing error.", "updateError", err)
		pipelineRunsTotal.WithLabelValues(outcomeUnrecorded).Inc()
		return nil, upstream("failed to write FAILED record", err)
	}
	pipelineRunsTotal.WithLabelValues(outcomeFailed).Inc()
	result.Recorded = true
	return result, nil
}

// MarkProcessing puts an existing record back to PROCESSING ahead of a manual
// re-run. A key without a record is left alone.
func (f *ProcessorFunction) MarkProcessing(ctx context.Context, key string) error {
	id := docid.Decode(key)
	if !id.Resolved() {
		return &ValidationError{Field: "user_id"}
	}
	err := f.records.UpdateField(ctx, id.OwnerID, id.Key, records.FieldStatus, models.StatusProcessing)
	if errors.Is(err, records.ErrNotFound) {
		return nil
	}
	if err != nil {
		return upstream("failed to reset status", err)
	}
	slog.Info("Record reset to PROCESSING.", "ownerId", id.OwnerID, "documentId", id.Key)
	return nil
}
