package googlegenai

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"github.com/petal-labs/verdant/core"
)

// buildRequest converts an envelope into SDK contents and config.
func buildRequest(env *core.Envelope) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	parts := make([]*genai.Part, 0, len(env.Contents.Parts))
	for i, p := range env.Contents.Parts {
		if p.InlineData != nil {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, nil, &core.ProviderError{
					Provider: providerID,
					Code:     core.StatusInvalidArgument,
					Message:  fmt.Sprintf("part %d: inline data is not valid base64: %v", i, err),
					Err:      core.ErrBadRequest,
				}
			}
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: p.InlineData.MimeType, Data: data}})
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	if env.Config == nil {
		return contents, nil, nil
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: env.Config.ResponseMimeType,
		ResponseSchema:   mapSchema(env.Config.ResponseSchema),
	}
	if env.Config.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(env.Config.SystemInstruction, genai.RoleUser)
	}
	for _, m := range env.Config.ResponseModalities {
		cfg.ResponseModalities = append(cfg.ResponseModalities, string(m))
	}
	return contents, cfg, nil
}

// mapSchema converts a core schema tree to the SDK schema type.
func mapSchema(s *core.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     genai.Type(s.Type),
		Items:    mapSchema(s.Items),
		Required: s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = mapSchema(prop)
		}
	}
	return out
}

// mapResponse converts an SDK response to the core response shape.
func mapResponse(resp *genai.GenerateContentResponse) *core.Response {
	out := &core.Response{}
	if resp == nil {
		return out
	}

	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		c := core.Candidate{FinishReason: string(cand.FinishReason)}
		if cand.Content != nil {
			c.Content.Role = cand.Content.Role
			for _, p := range cand.Content.Parts {
				if p == nil {
					continue
				}
				part := core.Part{Text: p.Text, Thought: p.Thought}
				if p.InlineData != nil {
					part.InlineData = &core.InlineData{
						MimeType: p.InlineData.MIMEType,
						Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
					}
				}
				c.Content.Parts = append(c.Content.Parts, part)
			}
		}
		out.Candidates = append(out.Candidates, c)
	}

	if u := resp.UsageMetadata; u != nil {
		out.UsageMetadata = &core.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CandidatesTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out
}
