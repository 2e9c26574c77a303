package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultLanguage is used by AnalyzeImage when no language is given.
const DefaultLanguage = "en"

const improvePromptInstruction = "You are a prompt engineering expert. Your task is to refine the user's prompt " +
	"for an AI image generation model. Rewrite the prompt to be clearer, more concise, and more effective for " +
	"the AI, ensuring it directly corresponds to the user's intent. Do not add new elements or concepts not " +
	"present in the original prompt. The goal is to improve the AI's understanding and maintain the original " +
	"vision's consistency. Return only the rewritten prompt, with no preamble or explanation."

const analysisInstructionTemplate = `You are a helpful and creative landscape design assistant.
Your task is to analyze the user's garden photo and provide two things in a JSON object, in the specified language: %s.
1. A detailed, objective description of the key elements and zones in the image (e.g., terrace material, fence type, existing plants, lawn condition). Keep this description concise, under 500 characters.
2. A list of 3-4 creative and actionable suggestions for improvement, presented as complete sentences that could be used as prompts. These suggestions should be directly inspired by the elements you identified in the description.

Example output for a simple garden (if language was 'en'):
{
  "description": "The image shows a small backyard with a worn-out lawn and a simple wooden fence. In the corner, there is a plastic children's slide.",
  "suggestions": [
    "Replace the worn-out lawn with lush, new sod and add a stone pathway leading to the back.",
    "Paint the wooden fence a modern charcoal gray and plant climbing jasmine along its base.",
    "Create a dedicated play area with a new sandbox and soft rubber mulch where the slide is.",
    "Introduce a flower bed with colorful, low-maintenance perennials along the fence line."
  ]
}`

// AnalysisInstruction returns the system instruction for AnalyzeImage in language.
func AnalysisInstruction(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}
	return fmt.Sprintf(analysisInstructionTemplate, language)
}

// AnalysisSchema returns the response schema requested by AnalyzeImage.
func AnalysisSchema() *Schema {
	return &Schema{
		Type: SchemaTypeObject,
		Properties: map[string]*Schema{
			"description": {Type: SchemaTypeString},
			"suggestions": {
				Type:  SchemaTypeArray,
				Items: &Schema{Type: SchemaTypeString},
			},
		},
	}
}

// ParseAnalysis validates and decodes structured analysis output.
// description must be a string and suggestions an array of strings;
// anything else is a *ShapeError.
func ParseAnalysis(text string) (*AnalysisResult, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, &ShapeError{Reason: "response is not a JSON object", Err: err}
	}

	desc, ok := raw["description"]
	if !ok {
		return nil, &ShapeError{Reason: "missing description"}
	}
	if !isJSONString(desc) {
		return nil, &ShapeError{Reason: "description is not a string"}
	}

	sugg, ok := raw["suggestions"]
	if !ok {
		return nil, &ShapeError{Reason: "missing suggestions"}
	}
	var items []json.RawMessage
	if bytes.Equal(bytes.TrimSpace(sugg), []byte("null")) {
		return nil, &ShapeError{Reason: "suggestions is not an array"}
	}
	if err := json.Unmarshal(sugg, &items); err != nil {
		return nil, &ShapeError{Reason: "suggestions is not an array"}
	}

	result := &AnalysisResult{Suggestions: make([]string, 0, len(items))}
	if err := json.Unmarshal(desc, &result.Description); err != nil {
		return nil, &ShapeError{Reason: "description is not a string", Err: err}
	}
	for i, item := range items {
		if !isJSONString(item) {
			return nil, &ShapeError{Reason: fmt.Sprintf("suggestion %d is not a string", i)}
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, &ShapeError{Reason: fmt.Sprintf("suggestion %d is not a string", i), Err: err}
		}
		result.Suggestions = append(result.Suggestions, s)
	}
	return result, nil
}

func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}
