package core

import "strings"

// Response is a raw provider response in the generateContent shape.
type Response struct {
	Candidates    []Candidate `json:"candidates"`
	UsageMetadata *TokenUsage `json:"usageMetadata,omitempty"`
}

// Candidate is one alternative produced by the model. Only the first is consumed.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Text returns the concatenated text of the first candidate, skipping thought parts.
// It returns an empty string when the response has no candidates.
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Usage returns the token usage, or a zero value when the provider sent none.
func (r *Response) Usage() TokenUsage {
	if r == nil || r.UsageMetadata == nil {
		return TokenUsage{}
	}
	return *r.UsageMetadata
}
