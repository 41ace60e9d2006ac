package simulator

import (
	"context"
	"time"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/broker"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/ctxutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// BlobContent is one static document served by the file/blob lookup
// endpoints. The set is immutable for the process lifetime.
type BlobContent struct {
	BlobID     string `json:"blob_id"`
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	FileName   string `json:"file_name"`
	MIMEType   string `json:"mime_type"`
	Content    string `json:"content"`
}

// BlobStore is the read-only in-memory document set backing the citation
// and document-fetch endpoints.
type BlobStore struct {
	byBlobID     map[string]*BlobContent
	byDocumentID map[string]*BlobContent
	ordered      []*BlobContent
}

func NewBlobStore() *BlobStore {
	docs := []*BlobContent{
		{
			BlobID:     "blob-onboarding-guide",
			DocumentID: "doc-onboarding-guide",
			Title:      "Onboarding Guide",
			FileName:   "onboarding-guide.md",
			MIMEType:   "text/markdown",
			Content: "# Onboarding Guide\n\nWelcome aboard. This guide covers account setup, " +
				"required trainings and who to contact during your first week.",
		},
		{
			BlobID:     "blob-remote-access-policy",
			DocumentID: "doc-remote-access-policy",
			Title:      "Remote Access Policy",
			FileName:   "remote-access-policy.md",
			MIMEType:   "text/markdown",
			Content: "# Remote Access Policy\n\nAll remote connections to internal systems must " +
				"use the corporate VPN with multi-factor authentication enabled.",
		},
		{
			BlobID:     "blob-password-reset-faq",
			DocumentID: "doc-password-reset-faq",
			Title:      "Password Reset FAQ",
			FileName:   "password-reset-faq.md",
			MIMEType:   "text/markdown",
			Content: "# Password Reset FAQ\n\nUse the self-service portal to reset your password. " +
				"Resets take effect immediately across all connected applications.",
		},
	}

	s := &BlobStore{
		byBlobID:     make(map[string]*BlobContent, len(docs)),
		byDocumentID: make(map[string]*BlobContent, len(docs)),
		ordered:      docs,
	}
	for _, d := range docs {
		s.byBlobID[d.BlobID] = d
		s.byDocumentID[d.DocumentID] = d
	}
	return s
}

func (s *BlobStore) ByBlobID(id string) (*BlobContent, bool) {
	d, ok := s.byBlobID[id]
	return d, ok
}

func (s *BlobStore) ByDocumentID(id string) (*BlobContent, bool) {
	d, ok := s.byDocumentID[id]
	return d, ok
}

func (s *BlobStore) All() []*BlobContent {
	return s.ordered
}

// DocumentProcessor simulates document ingestion by publishing terminal
// processing status messages for each uploaded document.
type DocumentProcessor struct {
	log   *logger.Logger
	pub   broker.Publisher
	store *BlobStore
	queue string
	delay time.Duration
}

func NewDocumentProcessor(log *logger.Logger, pub broker.Publisher, store *BlobStore, queue string, delay time.Duration) *DocumentProcessor {
	return &DocumentProcessor{
		log:   log.With("service", "DocumentProcessor"),
		pub:   pub,
		store: store,
		queue: queue,
		delay: delay,
	}
}

// documentIDs normalizes the single/plural payload forms.
func documentIDs(p domain.WebhookPayload) []string {
	if len(p.DocumentIDs) > 0 {
		return p.DocumentIDs
	}
	if p.DocumentID != "" {
		return []string{p.DocumentID}
	}
	return nil
}

// ProcessUpload publishes one terminal status per document after the
// configured delay: processing_completed carrying the extracted markdown
// when the blob is known, or processing_failed under the failure scenario.
func (d *DocumentProcessor) ProcessUpload(ctx context.Context, p domain.WebhookPayload) {
	ids := documentIDs(p)

	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	for _, id := range ids {
		msg := domain.DocumentStatus{
			Type:           domain.StatusTypeDocumentProcessing,
			BlobMetadataID: id,
			TenantID:       p.TenantID,
			UserID:         p.UserID,
			Timestamp:      domain.Now(),
		}
		if p.Scenario == ScenarioFailure {
			msg.Status = domain.DocumentProcessingFailed
			msg.ErrorMessage = "text extraction failed for the uploaded document"
		} else {
			msg.Status = domain.DocumentProcessingCompleted
			msg.ProcessedMarkdown = d.markdownFor(id)
		}
		d.publish(ctx, msg)
	}
	d.log.Info("document processing simulated",
		"request_id", ctxutil.CorrelationID(ctx),
		"documents_processed", len(ids),
	)
}

// markdownFor returns the static document content for a known blob or
// document id, "" otherwise.
func (d *DocumentProcessor) markdownFor(id string) string {
	if d.store == nil {
		return ""
	}
	if doc, ok := d.store.ByBlobID(id); ok {
		return doc.Content
	}
	if doc, ok := d.store.ByDocumentID(id); ok {
		return doc.Content
	}
	return ""
}

// ProcessDelete acknowledges document removal. The processing status queue
// has no deletion vocabulary, so nothing is published; the removal is only
// logged for correlation.
func (d *DocumentProcessor) ProcessDelete(ctx context.Context, p domain.WebhookPayload) {
	for _, id := range documentIDs(p) {
		d.log.Info("document removal acknowledged",
			"request_id", ctxutil.CorrelationID(ctx),
			"blob_metadata_id", id,
		)
	}
}

func (d *DocumentProcessor) publish(ctx context.Context, msg domain.DocumentStatus) {
	if err := d.pub.Publish(ctx, d.queue, msg); err != nil {
		d.log.Error("document status publish failed",
			"request_id", ctxutil.CorrelationID(ctx),
			"document_id", msg.BlobMetadataID,
			"status", msg.Status,
			"error", err,
		)
	}
}
