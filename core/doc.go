// Package core provides the verdant client and the types shared by transports.
//
// Verdant edits and analyzes garden photos with Gemini image models. The core
// package owns the operation façade, the retry loop, response normalization and
// the error taxonomy. Transports live under providers/ and only move bytes.
//
// # Client and Transport
//
// The primary entry point is [Client], which wraps a [Transport] and adds
// retries, telemetry, rate limiting and logging:
//
//	transport := selector.New(gemini.New(apiKey), settingsSource)
//	client := core.NewClient(transport,
//	    core.WithLogger(logger),
//	    core.WithTelemetry(hook),
//	)
//
// A Transport performs exactly one call per Generate and never retries.
//
// # Operations
//
//	result, err := client.EditImage(ctx, core.Image{Data: photo}, "Add a stone path")
//	result, err := client.EditImageWithMask(ctx, img, mask, "Plant lavender here")
//	improved, err := client.ImprovePrompt(ctx, "more flowers")
//	analysis, err := client.AnalyzeImage(ctx, img, "en")
//
// An edited image is returned as a data URL. Feed it back with [ImageFromDataURL]
// to refine a previous result.
//
// # Retries
//
// Only the image-producing operations retry. Each attempt is classified with
// [Classify]; UNAUTHENTICATED, INVALID_ARGUMENT and RESOURCE_EXHAUSTED stop the
// loop immediately. Everything else, including a response with no image, is
// retried according to the [RetryPolicy]. The default is [LinearBackoff] with
// three attempts, waiting 1s and then 2s.
//
// Once the loop gives up, the caller receives a [*GenerationError] that matches
// [ErrGenerationFailedPermanently]. The cause of the last attempt is logged and
// passed to [TelemetryHook.OnRequestEnd] but is not part of the returned chain.
//
// # Error Handling
//
// ImprovePrompt and AnalyzeImage surface transport errors unchanged. Use
// errors.Is with the sentinels, or [ErrorCode] for a stable string code:
//
//	switch core.ErrorCode(err) {
//	case core.CodeGenerationFailedPermanently:
//	    // retries exhausted or aborted
//	case core.CodeInvalidResponseShape:
//	    // analysis JSON did not match the schema
//	}
package core
