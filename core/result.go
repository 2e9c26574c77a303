package core

// EditResult is the normalized outcome of an image-producing operation.
type EditResult struct {
	// Image is a data URL (data:<mime>;base64,<payload>). Never empty on success.
	Image string `json:"image"`
	// Text is the optional note the model returned with the image.
	Text string `json:"text,omitempty"`
	// MimeType is left empty by the client; callers set it after return.
	MimeType string `json:"mimeType,omitempty"`
}

// Bytes decodes the image payload.
func (r *EditResult) Bytes() ([]byte, error) {
	_, data, err := DecodeDataURL(r.Image)
	return data, err
}

// AnalysisResult is the structured description of an analyzed photo.
type AnalysisResult struct {
	Description string   `json:"description"`
	Suggestions []string `json:"suggestions"`
}
