package safeher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MrEthical07/safeher/attachment"
	"github.com/MrEthical07/safeher/permission"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadAndOpen(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.actor(t, "alice@example.com", permission.RoleUser)

	att, err := env.engine.Upload(ctx, alice, "../Screen Shot.PNG", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if att.Name != "Screen_Shot.PNG" || att.Type != "image/png" || att.Size != int64(len(pngHeader)) {
		t.Fatalf("unexpected attachment %+v", att)
	}
	if att.URL != "/uploads/20250301_120000_Screen_Shot.PNG" {
		t.Fatalf("unexpected url %s", att.URL)
	}

	rc, obj, err := env.engine.OpenUpload(ctx, strings.TrimPrefix(att.URL, attachment.URLPrefix))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, pngHeader) || obj.Size != int64(len(pngHeader)) {
		t.Fatalf("stored object mismatch: %d bytes", len(data))
	}

	ev := env.waitEvent(t, auditEventUploadAccepted)
	if ev.Metadata["url"] != att.URL {
		t.Fatalf("unexpected audit event %+v", ev)
	}
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Uploads.MaxFileSize = 8 })
	ctx := context.Background()
	alice := env.actor(t, "alice@example.com", permission.RoleUser)

	if _, err := env.engine.Upload(ctx, alice, "", strings.NewReader("x")); !errors.Is(err, attachment.ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
	if _, err := env.engine.Upload(ctx, alice, "run.exe", strings.NewReader("x")); !errors.Is(err, attachment.ErrTypeNotAllowed) {
		t.Fatalf("expected ErrTypeNotAllowed, got %v", err)
	}
	if _, err := env.engine.Upload(ctx, alice, "big.pdf", strings.NewReader("0123456789")); !errors.Is(err, attachment.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricUploadRejected]; got != 3 {
		t.Fatalf("expected 3 rejections, got %d", got)
	}

	ev := env.waitEvent(t, auditEventUploadRejected)
	if ev.Error != string(auditErrInvalidInput) {
		t.Fatalf("expected invalid_input audit code, got %q", ev.Error)
	}
}

func TestUploadRateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Uploads.MaxPerWindow = 1 })
	ctx := context.Background()
	alice := env.actor(t, "alice@example.com", permission.RoleUser)

	if _, err := env.engine.Upload(ctx, alice, "a.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := env.engine.Upload(ctx, alice, "b.pdf", strings.NewReader("%PDF-1.4")); !errors.Is(err, ErrUploadRateLimited) {
		t.Fatalf("expected ErrUploadRateLimited, got %v", err)
	}
}
