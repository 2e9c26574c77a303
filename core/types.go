package core

// ModelID is a string identifier for a model.
// Using string avoids coupling to provider-specific enums.
type ModelID string

// Default models used by the operation façade.
const (
	// ModelImageEdit produces edited images alongside an optional text note.
	ModelImageEdit ModelID = "gemini-2.5-flash-image-preview"
	// ModelText handles prompt rewriting and image analysis.
	ModelText ModelID = "gemini-2.5-flash"
)

// Modality names an output type requested from the model.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
)

// SchemaType is the type tag of a structured-output schema node.
type SchemaType string

const (
	SchemaTypeObject SchemaType = "OBJECT"
	SchemaTypeArray  SchemaType = "ARRAY"
	SchemaTypeString SchemaType = "STRING"
)

// Schema describes the structure the model must follow in JSON response mode.
type Schema struct {
	Type       SchemaType         `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// TokenUsage represents token consumption reported by the provider.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokenCount,omitempty"`
	CandidatesTokens int `json:"candidatesTokenCount,omitempty"`
	TotalTokens      int `json:"totalTokenCount,omitempty"`
}
