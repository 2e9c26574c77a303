package gemini

import "github.com/petal-labs/verdant/core"

// buildRequest creates a Gemini API request from a core envelope.
func buildRequest(env *core.Envelope) *geminiRequest {
	gemReq := &geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: mapParts(env.Contents.Parts),
		}},
	}

	cfg := env.Config
	if cfg == nil {
		return gemReq
	}

	if cfg.SystemInstruction != "" {
		gemReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: cfg.SystemInstruction}},
		}
	}

	genConfig := &geminiGenConfig{
		ResponseMimeType: cfg.ResponseMimeType,
		ResponseSchema:   cfg.ResponseSchema,
	}
	for _, m := range cfg.ResponseModalities {
		genConfig.ResponseModalities = append(genConfig.ResponseModalities, string(m))
	}
	if len(genConfig.ResponseModalities) > 0 || genConfig.ResponseMimeType != "" || genConfig.ResponseSchema != nil {
		gemReq.GenerationConfig = genConfig
	}

	return gemReq
}

// mapParts converts envelope parts to Gemini parts.
func mapParts(parts []core.Part) []geminiPart {
	out := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		gp := geminiPart{Text: p.Text}
		if p.InlineData != nil {
			gp.InlineData = &geminiInlineData{
				MimeType: p.InlineData.MimeType,
				Data:     p.InlineData.Data,
			}
		}
		out = append(out, gp)
	}
	return out
}

// mapResponse converts a Gemini response to the core response shape.
func mapResponse(resp *geminiResponse) *core.Response {
	out := &core.Response{
		Candidates: make([]core.Candidate, 0, len(resp.Candidates)),
	}

	for _, cand := range resp.Candidates {
		c := core.Candidate{
			Content:      core.Content{Role: cand.Content.Role},
			FinishReason: cand.FinishReason,
		}
		for _, p := range cand.Content.Parts {
			part := core.Part{
				Text:    p.Text,
				Thought: p.Thought != nil && *p.Thought,
			}
			if p.InlineData != nil {
				part.InlineData = &core.InlineData{
					MimeType: p.InlineData.MimeType,
					Data:     p.InlineData.Data,
				}
			}
			c.Content.Parts = append(c.Content.Parts, part)
		}
		out.Candidates = append(out.Candidates, c)
	}

	if resp.UsageMetadata != nil {
		total := resp.UsageMetadata.TotalTokenCount
		if total == 0 {
			total = resp.UsageMetadata.PromptTokenCount + resp.UsageMetadata.CandidatesTokenCount
		}
		out.UsageMetadata = &core.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CandidatesTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      total,
		}
	}

	return out
}
