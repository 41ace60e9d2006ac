package domain

import "time"

// Data source status messages, published on the data_source_status queue.
const (
	StatusTypeSync         = "sync"
	StatusTypeVerification = "verification"

	SyncStarted   = "sync_started"
	SyncProgress  = "sync_progress"
	SyncCompleted = "sync_completed"
	SyncFailed    = "sync_failed"

	VerificationSuccess = "success"
	VerificationFailed  = "failed"
)

// Verification results reuse the sync envelope; the consumer keys the
// options and error payloads as plain "options" and "error".
type DataSourceStatus struct {
	Type                string         `json:"type"`
	ConnectionID        string         `json:"connection_id"`
	TenantID            string         `json:"tenant_id"`
	Status              string         `json:"status"`
	Timestamp           string         `json:"timestamp"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	DocumentsProcessed  *int           `json:"documents_processed,omitempty"`
	EstimatedTotal      *int           `json:"estimated_total,omitempty"`
	VerificationOptions map[string]any `json:"options,omitempty"`
	VerificationError   string         `json:"error,omitempty"`
}

// Document processing statuses, published on the document_processing_status
// queue. The consumer accepts only the two terminal statuses.
const (
	StatusTypeDocumentProcessing = "document_processing"

	DocumentProcessingCompleted = "processing_completed"
	DocumentProcessingFailed    = "processing_failed"
)

type DocumentStatus struct {
	Type              string `json:"type"`
	BlobMetadataID    string `json:"blob_metadata_id"`
	TenantID          string `json:"tenant_id"`
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	UserID            string `json:"user_id,omitempty"`
	ProcessedMarkdown string `json:"processed_markdown,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// Now returns the RFC3339 UTC timestamp the status messages carry.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
