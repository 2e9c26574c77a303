package core

// NormalizeEdit converts a provider response into an EditResult.
//
// Parts of the first candidate are scanned in order. The last text part and the
// last inline image part win; nothing is concatenated. A response without any
// inline image fails with ErrNoImageReturned.
func NormalizeEdit(resp *Response) (*EditResult, error) {
	result := &EditResult{}

	if resp != nil && len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				result.Text = part.Text
			}
			if part.InlineData != nil {
				result.Image = DataURL(part.InlineData.MimeType, part.InlineData.Data)
			}
		}
	}

	if result.Image == "" {
		return nil, ErrNoImageReturned
	}
	return result, nil
}
