package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/converse/pkg/telemetry/logging"
)

// staticProvider serves secrets from a map and counts lookups.
type staticProvider struct {
	name    string
	secrets map[string]string
	err     error
	calls   int
}

func (p *staticProvider) GetSecret(_ context.Context, name string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	v, ok := p.secrets[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (p *staticProvider) Name() string { return p.name }

func newManager(ttl time.Duration, providers ...Provider) *Manager {
	return NewManager(providers, CacheConfig{TTL: ttl}, logging.Discard())
}

func TestManager_GetSecret_Order(t *testing.T) {
	first := &staticProvider{name: "first", secrets: map[string]string{"a": "from-first"}}
	second := &staticProvider{name: "second", secrets: map[string]string{"a": "from-second", "b": "only-second"}}
	m := newManager(0, first, second)

	tests := []struct {
		name string
		want string
	}{
		{"a", "from-first"},
		{"b", "only-second"},
	}
	for _, tt := range tests {
		got, err := m.GetSecret(context.Background(), tt.name)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}

	if _, err := m.GetSecret(context.Background(), "c"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_GetSecret_ProviderErrorStops(t *testing.T) {
	broken := &staticProvider{name: "broken", err: errors.New("throttled")}
	fallback := &staticProvider{name: "fallback", secrets: map[string]string{"a": "v"}}
	m := newManager(0, broken, fallback)

	_, err := m.GetSecret(context.Background(), "a")
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected provider error, got %v", err)
	}
	if fallback.calls != 0 {
		t.Errorf("expected fallback provider not to be called, got %d calls", fallback.calls)
	}
}

func TestManager_GetSecret_Cached(t *testing.T) {
	p := &staticProvider{name: "p", secrets: map[string]string{"a": "v"}}
	m := newManager(time.Minute, p)

	for i := 0; i < 3; i++ {
		if _, err := m.GetSecret(context.Background(), "a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if p.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", p.calls)
	}

	m.Refresh()
	if _, err := m.GetSecret(context.Background(), "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("expected refresh to force a lookup, got %d calls", p.calls)
	}
}

func TestManager_Resolve(t *testing.T) {
	p := &staticProvider{name: "p", secrets: map[string]string{
		"anthropic-api-key": "sk-ant-1",
		"region":            "sa-east-1",
	}}
	m := newManager(0, p)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"literal", "sk-literal", "sk-literal", false},
		{"empty", "", "", false},
		{"whole reference", "${secret:anthropic-api-key}", "sk-ant-1", false},
		{"embedded references", "key=${secret:anthropic-api-key};region=${secret:region}", "key=sk-ant-1;region=sa-east-1", false},
		{"missing", "${secret:missing}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Resolve(context.Background(), tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsReference(t *testing.T) {
	if !IsReference("${secret:x}") {
		t.Error("expected reference to be detected")
	}
	if IsReference("sk-plain") {
		t.Error("expected literal not to be a reference")
	}
}

func TestRedactSecretName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abc", "***"},
		{"abcd", "***"},
		{"anthropic-api-key", "an...ey"},
	}
	for _, tt := range tests {
		if got := redactSecretName(tt.input); got != tt.want {
			t.Errorf("redactSecretName(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}
