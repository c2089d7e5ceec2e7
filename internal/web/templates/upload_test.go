package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(t *testing.T, p UploadPageParams) string {
	t.Helper()
	var buf bytes.Buffer
	if err := UploadPage(p).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestUploadPage_FreshForm(t *testing.T) {
	html := render(t, UploadPageParams{MaxFileSizeMB: 10})

	for _, want := range []string{`name="token"`, `name="file"`, `enctype="multipart/form-data"`, "Max 10 MB"} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, `<pre id="log">`) {
		t.Error("fresh form should not render a log")
	}
}

func TestUploadPage_EscapesLog(t *testing.T) {
	html := render(t, UploadPageParams{
		BatchID: "b-1",
		Log:     []string{"✅ Created: Tier", "❌ Error (400) for '<script>': bad"},
	})

	if strings.Contains(html, "<script>") {
		t.Error("log line was not escaped")
	}
	if !strings.Contains(html, "✅ Created: Tier\n❌ Error (400)") {
		t.Error("log lines not joined with newlines")
	}
	if !strings.Contains(html, "Batch b-1") {
		t.Error("batch id not shown")
	}
}
