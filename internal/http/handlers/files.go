package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/http/response"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/simulator"
)

// FilesHandler serves the static document-lookup endpoints used to simulate
// citation and document-fetch flows.
type FilesHandler struct {
	store *simulator.BlobStore
}

func NewFilesHandler(store *simulator.BlobStore) *FilesHandler {
	return &FilesHandler{store: store}
}

// GET /blobs
func (h *FilesHandler) ListBlobs(c *gin.Context) {
	blobs := h.store.All()
	out := make([]gin.H, 0, len(blobs))
	for _, b := range blobs {
		out = append(out, gin.H{
			"blob_id":   b.BlobID,
			"title":     b.Title,
			"file_name": b.FileName,
			"mime_type": b.MIMEType,
		})
	}
	response.RespondOK(c, gin.H{"blobs": out})
}

// GET /blobs/:blobId
func (h *FilesHandler) GetBlob(c *gin.Context) {
	id := c.Param("blobId")
	blob, ok := h.store.ByBlobID(id)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "blob_not_found",
			fmt.Errorf("no blob with id %q", id))
		return
	}
	response.RespondOK(c, blob)
}

// GET /api/files/:documentId/metadata
func (h *FilesHandler) GetFileMetadata(c *gin.Context) {
	id := c.Param("documentId")
	doc, ok := h.store.ByDocumentID(id)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "document_not_found",
			fmt.Errorf("no document with id %q", id))
		return
	}
	response.RespondOK(c, gin.H{
		"document_id": doc.DocumentID,
		"blob_id":     doc.BlobID,
		"title":       doc.Title,
		"file_name":   doc.FileName,
		"mime_type":   doc.MIMEType,
		"size_bytes":  len(doc.Content),
	})
}

// GET /api/files/:documentId/download
func (h *FilesHandler) DownloadFile(c *gin.Context) {
	id := c.Param("documentId")
	doc, ok := h.store.ByDocumentID(id)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "document_not_found",
			fmt.Errorf("no document with id %q", id))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.MIMEType, []byte(doc.Content))
}
