package logging

import (
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/converse/pkg/config"
)

func TestRedactor_RedactString(t *testing.T) {
	r, err := NewRedactor(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		input   string
		leak    string
		keepsIn string
	}{
		{"email", "contato: joao.silva@empresa.com.br", "joao.silva@empresa.com.br", "contato:"},
		{"cpf formatted", "CPF 123.456.789-09", "123.456.789-09", "CPF"},
		{"cpf digits", "cpf 12345678909", "12345678909", "cpf"},
		{"cnpj", "CNPJ 12.345.678/0001-95", "12.345.678/0001-95", "CNPJ"},
		{"mobile", "liga no (11) 98765-4321", "98765-4321", "liga no"},
		{"anthropic key", "key sk-ant-api03-abcdefgh", "api03-abcdefgh", "key"},
		{"bearer", "Authorization: Bearer abc.def.ghi", "abc.def.ghi", "Authorization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.input)
			if strings.Contains(got, tt.leak) {
				t.Errorf("expected %q to be redacted, got %q", tt.leak, got)
			}
			if !strings.Contains(got, tt.keepsIn) {
				t.Errorf("expected %q to be kept, got %q", tt.keepsIn, got)
			}
		})
	}
}

func TestRedactor_CustomPattern(t *testing.T) {
	r, err := NewRedactor([]config.RedactPattern{
		{Name: "order", Pattern: `PED-\d+`, Replacement: "PED-***"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := r.RedactString("pedido PED-12345"); got != "pedido PED-***" {
		t.Errorf("expected custom replacement, got %q", got)
	}
}

func TestRedactor_ReplaceAttr(t *testing.T) {
	r, _ := NewRedactor(nil)

	tests := []struct {
		attr slog.Attr
		want string
	}{
		{slog.String("client_secret", "supersecret"), "supe***"},
		{slog.String("db_dsn", "postgres://u:p@h/db"), "post***"},
		{slog.String("token", "abc"), "***"},
		{slog.String("note", "fale com maria@x.com"), "fale com ***@***"},
		{slog.String(slog.MessageKey, "maria@x.com"), "maria@x.com"},
	}

	for _, tt := range tests {
		got := r.ReplaceAttr(nil, tt.attr)
		if got.Value.String() != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.attr.Key, tt.want, got.Value.String())
		}
	}

	count := r.ReplaceAttr(nil, slog.Int("output_tokens", 42))
	if count.Value.Int64() != 42 {
		t.Errorf("expected numeric attr untouched, got %v", count.Value)
	}
}
