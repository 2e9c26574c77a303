package providers

import (
	"context"
	"strings"
	"testing"

	"github.com/petal-labs/verdant/core"
)

// stubTransport implements core.Transport for testing.
type stubTransport struct {
	id string
}

func (s *stubTransport) ID() string { return s.id }
func (s *stubTransport) Generate(context.Context, *core.Envelope) (*core.Response, error) {
	return &core.Response{}, nil
}

func TestRegisterAndGet(t *testing.T) {
	Register("get-test", func(apiKey string) core.Transport {
		return &stubTransport{id: "get-test"}
	})

	if !IsRegistered("get-test") {
		t.Error("expected get-test to be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("expected nonexistent to not be registered")
	}

	factory := Get("get-test")
	if factory == nil {
		t.Fatal("expected factory to not be nil")
	}
	if got := factory("k").ID(); got != "get-test" {
		t.Errorf("ID() = %q, want get-test", got)
	}
	if Get("nonexistent") != nil {
		t.Error("expected nil for nonexistent backend")
	}
}

func TestCreate(t *testing.T) {
	Register("create-test", func(apiKey string) core.Transport {
		return &stubTransport{id: "create-test-" + apiKey}
	})

	transport, err := Create("create-test", "my-key")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if transport.ID() != "create-test-my-key" {
		t.Errorf("ID() = %q, want create-test-my-key", transport.ID())
	}

	_, err = Create("nonexistent", "key")
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("Create(nonexistent) error = %v, want unknown backend", err)
	}
}

func TestListSorted(t *testing.T) {
	Register("list-b", func(string) core.Transport { return nil })
	Register("list-a", func(string) core.Transport { return nil })

	list := List()
	found := make(map[string]bool)
	for _, name := range list {
		found[name] = true
	}
	for _, name := range []string{"list-a", "list-b"} {
		if !found[name] {
			t.Errorf("expected %q to be in list", name)
		}
	}
	for i := 1; i < len(list); i++ {
		if list[i-1] > list[i] {
			t.Errorf("list not sorted: %q > %q", list[i-1], list[i])
		}
	}
}
