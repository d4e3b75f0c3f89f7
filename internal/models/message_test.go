package models_test

import (
	"strings"
	"testing"

	"github.com/jdphotomoments/chatwidget/internal/models"
)

func TestWireRole(t *testing.T) {
	tests := []struct {
		role models.Role
		want string
	}{
		{models.RoleUser, "user"},
		{models.RoleBot, "assistant"},
	}

	for _, tt := range tests {
		if got := tt.role.WireRole(); got != tt.want {
			t.Errorf("%q.WireRole() = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestNewMessage(t *testing.T) {
	a := models.NewMessage(models.RoleUser, "hello")
	b := models.NewMessage(models.RoleUser, "hello")

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("NewMessage() ids = %q, %q, want unique non-empty ids", a.ID, b.ID)
	}
	if a.Timestamp.IsZero() {
		t.Error("NewMessage() timestamp is zero")
	}
}

func TestRenderContent(t *testing.T) {
	got, err := render(t, "We shoot **weddings**.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "<strong>weddings</strong>") {
		t.Errorf("RenderContent() = %q, want bold markup", got)
	}

	got, err = render(t, "<script>alert(1)</script>")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(got), "<script>") {
		t.Errorf("RenderContent() = %q, raw HTML must not pass through", got)
	}

	got, err = render(t, "")
	if err != nil || got != "" {
		t.Errorf("RenderContent(\"\") = %q, %v, want empty", got, err)
	}
}

func render(t *testing.T, content string) (string, error) {
	t.Helper()
	html, err := models.RenderContent(content)
	return string(html), err
}
