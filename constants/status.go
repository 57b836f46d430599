package constants

// DocumentStatus is the canonical status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	StatusUploaded   DocumentStatus = "UPLOADED"   // stored, not yet processed
	StatusProcessing DocumentStatus = "PROCESSING" // claimed by a worker
	StatusProcessed  DocumentStatus = "PROCESSED"  // result committed
	StatusFailed     DocumentStatus = "FAILED"     // attempt failed; reprocess allowed
)

// Processing event names emitted to the structured log and appended to the
// document's processing log.
const (
	EventUploadDocuments = "upload_documents"
	EventProcessStart    = "process_document_start"
	EventOCRFallback     = "ocr_fallback"
	EventExtractOK       = "extract_ok"
	EventExtractMissing  = "extract_missing"
	EventProcessDone     = "process_document_done"
	EventProcessFailed   = "process_document_failed"
)
