package commands

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/petal-labs/verdant/cli/config"
	"github.com/petal-labs/verdant/core"
)

func TestRunServe(t *testing.T) {
	ta := newTestApp(t, testAppConfig{
		respond: func(*core.Envelope) (*core.Response, error) {
			return textResponse("a richer prompt"), nil
		},
	})
	ta.app.cfg = config.Default()

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- ta.app.runServe(ctx, "127.0.0.1:0", true, ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("runServe exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	base := "http://" + addr

	resp, err := http.Get(base + "/v1/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Post(base+"/v1/improve-prompt", "application/json", strings.NewReader(`{"prompt":"roses"}`))
	if err != nil {
		t.Fatalf("POST improve-prompt: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "a richer prompt") {
		t.Errorf("improve-prompt = %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	metricsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(metricsBody), `verdant_operations_total{code="ok",model="gemini-2.5-flash",operation="improve_prompt"} 1`) {
		t.Errorf("metrics missing operation counter:\n%s", metricsBody)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServeListenError(t *testing.T) {
	ta := newTestApp(t, testAppConfig{})
	ta.app.cfg = config.Default()

	err := ta.app.runServe(context.Background(), "256.0.0.1:bad", false, nil)
	if code := exitCodeOf(err); code != ExitValidation {
		t.Errorf("exit code = %d, want %d (err: %v)", code, ExitValidation, err)
	}
}

func TestAPIEditRoundTrip(t *testing.T) {
	ta := newTestApp(t, testAppConfig{
		respond: func(*core.Envelope) (*core.Response, error) {
			return imageResponse("image/png", []byte("edited"), "done"), nil
		},
	})
	ta.app.cfg = config.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan string, 1)
	go func() { _ = ta.app.runServe(ctx, "127.0.0.1:0", false, ready) }()
	addr := <-ready

	src := base64.StdEncoding.EncodeToString([]byte("src"))
	resp, err := http.Post("http://"+addr+"/v1/edit", "application/json",
		strings.NewReader(`{"image":{"data":"`+src+`","mimeType":"image/png"},"prompt":"add a bench"}`))
	if err != nil {
		t.Fatalf("POST edit: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	want := core.DataURL("image/png", base64.StdEncoding.EncodeToString([]byte("edited")))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
		t.Errorf("edit = %d %s", resp.StatusCode, body)
	}
}
