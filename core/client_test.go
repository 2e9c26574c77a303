package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type fakeReply struct {
	resp *Response
	err  error
}

// fakeTransport replays scripted replies, repeating the last one.
type fakeTransport struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   []*Envelope
}

func (f *fakeTransport) ID() string { return "fake" }

func (f *fakeTransport) Generate(_ context.Context, env *Envelope) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, env)
	if len(f.replies) == 0 {
		return nil, nil
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i].resp, f.replies[i].err
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingHook captures telemetry events.
type recordingHook struct {
	mu       sync.Mutex
	starts   []RequestStartEvent
	attempts []AttemptEvent
	ends     []RequestEndEvent
}

func (h *recordingHook) OnRequestStart(e RequestStartEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts = append(h.starts, e)
}

func (h *recordingHook) OnAttempt(e AttemptEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts = append(h.attempts, e)
}

func (h *recordingHook) OnRequestEnd(e RequestEndEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, e)
}

func newTestClient(ft *fakeTransport, rec *sleepRecorder, opts ...ClientOption) *Client {
	c := NewClient(ft, opts...)
	c.sleep = rec.sleep
	c.newID = func() string { return "req-test" }
	return c
}

func imageReply(text, mime, data string) fakeReply {
	parts := []Part{}
	if text != "" {
		parts = append(parts, TextPart(text))
	}
	parts = append(parts, InlinePart(mime, data))
	return fakeReply{resp: &Response{
		Candidates:    []Candidate{{Content: Content{Parts: parts}}},
		UsageMetadata: &TokenUsage{PromptTokens: 10, CandidatesTokens: 5, TotalTokens: 15},
	}}
}

func textReply(text string) fakeReply {
	return fakeReply{resp: &Response{Candidates: []Candidate{{Content: Content{Parts: []Part{TextPart(text)}}}}}}
}

var testImage = Image{Base64: "QUJD", MimeType: "image/jpeg"}

func TestEditImage(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{imageReply("Added a stone path.", "image/png", "RUVF")}}
	rec := &sleepRecorder{}
	hook := &recordingHook{}
	client := newTestClient(ft, rec, WithTelemetry(hook))

	result, err := client.EditImage(context.Background(), testImage, "Add a stone path")
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if result.Image != "data:image/png;base64,RUVF" {
		t.Errorf("Image = %q", result.Image)
	}
	if result.Text != "Added a stone path." {
		t.Errorf("Text = %q", result.Text)
	}

	if ft.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", ft.callCount())
	}
	env := ft.calls[0]
	if env.Model != ModelImageEdit {
		t.Errorf("Model = %q, want %q", env.Model, ModelImageEdit)
	}
	parts := env.Contents.Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MimeType != "image/jpeg" || parts[0].InlineData.Data != "QUJD" {
		t.Errorf("parts[0] = %+v, want image/jpeg QUJD", parts[0])
	}
	if parts[1].Text != "Add a stone path" {
		t.Errorf("parts[1].Text = %q", parts[1].Text)
	}
	mods := env.Config.ResponseModalities
	if len(mods) != 2 || mods[0] != ModalityImage || mods[1] != ModalityText {
		t.Errorf("ResponseModalities = %v, want [IMAGE TEXT]", mods)
	}

	if len(hook.ends) != 1 {
		t.Fatalf("end events = %d, want 1", len(hook.ends))
	}
	end := hook.ends[0]
	if end.Operation != OpEditImage || end.RequestID != "req-test" || end.Attempts != 1 {
		t.Errorf("end event = %+v", end)
	}
	if end.Usage.TotalTokens != 15 {
		t.Errorf("Usage.TotalTokens = %d, want 15", end.Usage.TotalTokens)
	}
}

func TestEditImageRetriesThenSucceeds(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{
		{err: ErrNetwork},
		textReply("I can only describe this garden."),
		imageReply("", "image/png", "RUVF"),
	}}
	rec := &sleepRecorder{}
	client := newTestClient(ft, rec)

	result, err := client.EditImage(context.Background(), testImage, "Add roses")
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if result.Image != "data:image/png;base64,RUVF" {
		t.Errorf("Image = %q", result.Image)
	}
	if ft.callCount() != 3 {
		t.Errorf("calls = %d, want 3", ft.callCount())
	}
	if len(rec.delays) != 2 || rec.delays[0] != time.Second || rec.delays[1] != 2*time.Second {
		t.Errorf("delays = %v, want [1s 2s]", rec.delays)
	}
}

func TestEditImageFailsPermanently(t *testing.T) {
	cause := &ProviderError{Provider: "fake", Status: 503, Code: "UNAVAILABLE", Err: ErrServer}
	ft := &fakeTransport{replies: []fakeReply{{err: cause}}}
	rec := &sleepRecorder{}
	hook := &recordingHook{}
	client := newTestClient(ft, rec, WithTelemetry(hook))

	_, err := client.EditImage(context.Background(), testImage, "Add a pond")
	if !errors.Is(err, ErrGenerationFailedPermanently) {
		t.Fatalf("EditImage() error = %v, want ErrGenerationFailedPermanently", err)
	}
	if ErrorCode(err) != CodeGenerationFailedPermanently {
		t.Errorf("ErrorCode() = %q", ErrorCode(err))
	}
	if ft.callCount() != 3 {
		t.Errorf("calls = %d, want 3", ft.callCount())
	}
	if len(hook.attempts) != 3 {
		t.Errorf("attempt events = %d, want 3", len(hook.attempts))
	}
	if len(hook.ends) != 1 {
		t.Fatalf("end events = %d, want 1", len(hook.ends))
	}
	if hook.ends[0].LastErr != cause {
		t.Errorf("end LastErr = %v, want %v", hook.ends[0].LastErr, cause)
	}
}

func TestEditImageAbortsOnUnauthenticated(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{
		{err: &ProviderError{Provider: "fake", Status: 401, Code: StatusUnauthenticated, Err: ErrUnauthorized}},
		imageReply("", "image/png", "RUVF"),
	}}
	rec := &sleepRecorder{}
	client := newTestClient(ft, rec)

	_, err := client.EditImage(context.Background(), testImage, "Add a pond")
	if !errors.Is(err, ErrGenerationFailedPermanently) {
		t.Fatalf("EditImage() error = %v, want ErrGenerationFailedPermanently", err)
	}
	if ft.callCount() != 1 {
		t.Errorf("calls = %d, want 1", ft.callCount())
	}
	if len(rec.delays) != 0 {
		t.Errorf("delays = %v, want none", rec.delays)
	}
}

func TestEditImageNilResponseIsUnknownAPI(t *testing.T) {
	ft := &fakeTransport{}
	hook := &recordingHook{}
	client := newTestClient(ft, &sleepRecorder{}, WithTelemetry(hook))

	_, err := client.EditImage(context.Background(), testImage, "Add a pond")
	if !errors.Is(err, ErrGenerationFailedPermanently) {
		t.Fatalf("EditImage() error = %v, want ErrGenerationFailedPermanently", err)
	}
	if !errors.Is(hook.ends[0].LastErr, ErrUnknownAPI) {
		t.Errorf("LastErr = %v, want ErrUnknownAPI", hook.ends[0].LastErr)
	}
}

func TestEditImageValidation(t *testing.T) {
	ft := &fakeTransport{}
	client := newTestClient(ft, &sleepRecorder{})

	_, err := client.EditImage(context.Background(), Image{}, "Add a pond")
	if !errors.Is(err, ErrEmptyImage) {
		t.Errorf("EditImage() error = %v, want ErrEmptyImage", err)
	}
	if ft.callCount() != 0 {
		t.Errorf("calls = %d, want 0", ft.callCount())
	}
}

func TestEditImageRefinesPreviousResult(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{imageReply("", "image/png", "U0VDT05E")}}
	client := newTestClient(ft, &sleepRecorder{})

	img, err := ImageFromDataURL("data:image/png;base64,RklSU1Q=")
	if err != nil {
		t.Fatalf("ImageFromDataURL() error = %v", err)
	}
	if _, err := client.EditImage(context.Background(), img, "Make the grass greener"); err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	inline := ft.calls[0].Contents.Parts[0].InlineData
	if inline.MimeType != "image/png" || inline.Data != "RklSU1Q=" {
		t.Errorf("inline = %+v, want previous result payload", inline)
	}
}

func TestEditImageWithMask(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{imageReply("", "image/png", "RUVF")}}
	client := newTestClient(ft, &sleepRecorder{})

	mask := Image{Base64: "TUFTSw==", MimeType: "image/webp"}
	result, err := client.EditImageWithMask(context.Background(), testImage, mask, "Plant lavender")
	if err != nil {
		t.Fatalf("EditImageWithMask() error = %v", err)
	}
	if result.Image != "data:image/png;base64,RUVF" {
		t.Errorf("Image = %q", result.Image)
	}

	parts := ft.calls[0].Contents.Parts
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	if parts[0].InlineData.MimeType != "image/jpeg" {
		t.Errorf("image mime = %q, want image/jpeg", parts[0].InlineData.MimeType)
	}
	if parts[1].InlineData.MimeType != MIMETypePNG || parts[1].InlineData.Data != "TUFTSw==" {
		t.Errorf("mask part = %+v, want image/png TUFTSw==", parts[1].InlineData)
	}
	if parts[2].Text != "Plant lavender" {
		t.Errorf("prompt = %q", parts[2].Text)
	}
}

func TestImprovePromptEmpty(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{textReply("unused")}}
	client := newTestClient(ft, &sleepRecorder{})

	got, err := client.ImprovePrompt(context.Background(), "")
	if err != nil {
		t.Fatalf("ImprovePrompt() error = %v", err)
	}
	if got != "" {
		t.Errorf("ImprovePrompt() = %q, want empty", got)
	}
	if ft.callCount() != 0 {
		t.Errorf("calls = %d, want 0", ft.callCount())
	}
}

func TestImprovePrompt(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{textReply("  Add a winding gravel path lined with lavender.\n")}}
	client := newTestClient(ft, &sleepRecorder{})

	got, err := client.ImprovePrompt(context.Background(), "path with flowers")
	if err != nil {
		t.Fatalf("ImprovePrompt() error = %v", err)
	}
	if got != "Add a winding gravel path lined with lavender." {
		t.Errorf("ImprovePrompt() = %q", got)
	}

	env := ft.calls[0]
	if env.Model != ModelText {
		t.Errorf("Model = %q, want %q", env.Model, ModelText)
	}
	if !strings.Contains(env.Config.SystemInstruction, "prompt engineering expert") {
		t.Errorf("SystemInstruction = %q", env.Config.SystemInstruction)
	}
	if env.Contents.Parts[0].Text != "path with flowers" {
		t.Errorf("prompt part = %q", env.Contents.Parts[0].Text)
	}
}

func TestImprovePromptDoesNotRetry(t *testing.T) {
	cause := &ProviderError{Provider: "fake", Status: 503, Err: ErrServer}
	ft := &fakeTransport{replies: []fakeReply{{err: cause}}}
	rec := &sleepRecorder{}
	client := newTestClient(ft, rec)

	_, err := client.ImprovePrompt(context.Background(), "more flowers")
	if !errors.Is(err, ErrServer) {
		t.Errorf("ImprovePrompt() error = %v, want the transport error", err)
	}
	if errors.Is(err, ErrGenerationFailedPermanently) {
		t.Error("single-shot failure should not be a permanent generation failure")
	}
	if ft.callCount() != 1 {
		t.Errorf("calls = %d, want 1", ft.callCount())
	}
}

func TestAnalyzeImage(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{textReply(`{"description":"A small lawn.","suggestions":["Add a bench.","Plant a hedge."]}`)}}
	client := newTestClient(ft, &sleepRecorder{})

	got, err := client.AnalyzeImage(context.Background(), testImage, "pt")
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if got.Description != "A small lawn." {
		t.Errorf("Description = %q", got.Description)
	}
	if len(got.Suggestions) != 2 || got.Suggestions[1] != "Plant a hedge." {
		t.Errorf("Suggestions = %v", got.Suggestions)
	}

	env := ft.calls[0]
	if env.Model != ModelText {
		t.Errorf("Model = %q, want %q", env.Model, ModelText)
	}
	if env.Config.ResponseMimeType != "application/json" {
		t.Errorf("ResponseMimeType = %q", env.Config.ResponseMimeType)
	}
	if env.Config.ResponseSchema == nil || env.Config.ResponseSchema.Type != SchemaTypeObject {
		t.Errorf("ResponseSchema = %+v", env.Config.ResponseSchema)
	}
	if !strings.Contains(env.Config.SystemInstruction, "in the specified language: pt.") {
		t.Errorf("SystemInstruction does not name the language: %q", env.Config.SystemInstruction)
	}
	if len(env.Contents.Parts) != 1 || env.Contents.Parts[0].InlineData == nil {
		t.Errorf("parts = %+v, want a single image part", env.Contents.Parts)
	}
}

func TestAnalyzeImageMissingSuggestions(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{textReply(`{"description":"x"}`)}}
	client := newTestClient(ft, &sleepRecorder{})

	_, err := client.AnalyzeImage(context.Background(), testImage, "en")
	if !errors.Is(err, ErrInvalidResponseShape) {
		t.Errorf("AnalyzeImage() error = %v, want ErrInvalidResponseShape", err)
	}
	if ft.callCount() != 1 {
		t.Errorf("calls = %d, want 1", ft.callCount())
	}
}

func TestAnalyzeImageTransportError(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{{err: ErrNetwork}}}
	client := newTestClient(ft, &sleepRecorder{})

	_, err := client.AnalyzeImage(context.Background(), testImage, "en")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("AnalyzeImage() error = %v, want ErrNetwork", err)
	}
}

func TestClientModelOverrides(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{textReply("ok")}}
	client := newTestClient(ft, &sleepRecorder{},
		WithTextModel("gemini-2.5-pro"),
		WithImageModel(""),
	)
	if _, err := client.ImprovePrompt(context.Background(), "x"); err != nil {
		t.Fatalf("ImprovePrompt() error = %v", err)
	}
	if ft.calls[0].Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q, want gemini-2.5-pro", ft.calls[0].Model)
	}
	if client.imageModel != ModelImageEdit {
		t.Errorf("imageModel = %q, empty override should keep the default", client.imageModel)
	}
}

func TestClientRateLimiterCanceled(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{textReply("ok")}}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow()
	client := newTestClient(ft, &sleepRecorder{}, WithRateLimiter(limiter))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := client.ImprovePrompt(ctx, "x"); err == nil {
		t.Error("ImprovePrompt() error = nil, want limiter error")
	}
	if ft.callCount() != 0 {
		t.Errorf("calls = %d, want 0", ft.callCount())
	}
}

// blockingTransport waits for the call context to end.
type blockingTransport struct{}

func (blockingTransport) ID() string { return "blocking" }

func (blockingTransport) Generate(ctx context.Context, _ *Envelope) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEditImageTimeoutOnLastAttempt(t *testing.T) {
	client := NewClient(blockingTransport{},
		WithRetryPolicy(LinearBackoff{MaxAttempts: 1}),
		WithTimeout(20*time.Millisecond),
	)

	_, err := client.EditImage(context.Background(), Image{Data: []byte("IMG"), MimeType: "image/png"}, "x")
	if !errors.Is(err, ErrGenerationFailedPermanently) {
		t.Fatalf("EditImage() error = %v, want ErrGenerationFailedPermanently", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("EditImage() error = %v, want context.DeadlineExceeded in chain", err)
	}
	if code := ErrorCode(err); code != CodeCanceled {
		t.Errorf("ErrorCode() = %q, want %q", code, CodeCanceled)
	}
}

func TestClientNilTransport(t *testing.T) {
	client := NewClient(nil)
	if _, err := client.ImprovePrompt(context.Background(), "x"); !errors.Is(err, ErrNilTransport) {
		t.Errorf("ImprovePrompt() error = %v, want ErrNilTransport", err)
	}
}

func TestClientConcurrentUse(t *testing.T) {
	ft := &fakeTransport{replies: []fakeReply{imageReply("", "image/png", "RUVF")}}
	client := newTestClient(ft, &sleepRecorder{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.EditImage(context.Background(), testImage, "x"); err != nil {
				t.Errorf("EditImage() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if ft.callCount() != 8 {
		t.Errorf("calls = %d, want 8", ft.callCount())
	}
}
