package core

// MIMETypePNG is the MIME type used for inpainting masks.
const MIMETypePNG = "image/png"

// Envelope is the request sent to a generation provider.
// It is built fresh for every call and must not be modified once handed to a Transport.
// Its JSON form is the SDK payload shape forwarded verbatim to custom endpoints.
type Envelope struct {
	Model    ModelID         `json:"model"`
	Contents Content         `json:"contents"`
	Config   *GenerateConfig `json:"config,omitempty"`
}

// Content is an ordered list of parts making up one turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single content fragment: either text or inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
}

// InlineData carries base64-encoded binary data with its MIME type.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerateConfig holds the generation options of an envelope.
type GenerateConfig struct {
	SystemInstruction  string     `json:"systemInstruction,omitempty"`
	ResponseModalities []Modality `json:"responseModalities,omitempty"`
	ResponseMimeType   string     `json:"responseMimeType,omitempty"`
	ResponseSchema     *Schema    `json:"responseSchema,omitempty"`
}

// TextPart returns a text part.
func TextPart(s string) Part {
	return Part{Text: s}
}

// InlinePart returns an inline data part from base64 data.
func InlinePart(mimeType, b64 string) Part {
	return Part{InlineData: &InlineData{MimeType: mimeType, Data: b64}}
}

// NewEnvelope builds an envelope for model with the given parts and config.
// The parts slice is copied so later changes by the caller do not leak in.
func NewEnvelope(model ModelID, cfg *GenerateConfig, parts ...Part) *Envelope {
	p := make([]Part, len(parts))
	copy(p, parts)
	return &Envelope{
		Model:    model,
		Contents: Content{Parts: p},
		Config:   cfg,
	}
}
