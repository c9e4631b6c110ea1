package dto

// ExtractionRequest is posted to the extraction service's per-type endpoint.
type ExtractionRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id,omitempty"`
}

type ExtractedFile struct {
	FileName string `json:"filename"`
	FilePath string `json:"filepath"`
	FileSize int64  `json:"filesize"`
	SizeStr  string `json:"size_str,omitempty"`
}

// ExtractionResponse mirrors the extraction service reply for every download endpoint.
type ExtractionResponse struct {
	Success   bool            `json:"success"`
	Title     string          `json:"title"`
	Thumbnail string          `json:"thumbnail"`
	Files     []ExtractedFile `json:"files"`
	Error     string          `json:"error,omitempty"`
}
