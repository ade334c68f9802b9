package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/MrEthical07/safeher/report"
	"github.com/google/uuid"
)

// URLPrefix is the public path stored objects are served under.
const URLPrefix = "/uploads/"

// Uploader validates and stores evidence files.
type Uploader struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// NewUploader returns an Uploader writing to store.
func NewUploader(store Store, policy Policy) *Uploader {
	return &Uploader{store: store, policy: policy, now: time.Now}
}

// WithClock replaces the clock used for stored names and timestamps.
func (u *Uploader) WithClock(now func() time.Time) *Uploader {
	if now != nil {
		u.now = now
	}
	return u
}

// Policy returns the active upload policy.
func (u *Uploader) Policy() Policy {
	return u.policy
}

// Store returns the backing object store.
func (u *Uploader) Store() Store {
	return u.store
}

// Save checks filename against the policy, reads at most MaxBytes from r and
// stores the result. The returned attachment names the sanitised original
// file and links to the stored object.
func (u *Uploader) Save(ctx context.Context, filename string, r io.Reader) (report.Attachment, error) {
	if filename == "" {
		return report.Attachment{}, ErrNoFile
	}
	name := SecureFilename(filename)
	if name == "" || !u.policy.Allowed(name) {
		return report.Attachment{}, ErrTypeNotAllowed
	}

	limit := u.policy.Limit()
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return report.Attachment{}, fmt.Errorf("read upload: %w", err)
	}
	if n > limit {
		return report.Attachment{}, ErrTooLarge
	}

	now := u.now().UTC()
	stored := StoredName(name, now)
	contentType := DetectContentType(buf.Bytes(), name)
	err = u.store.Put(ctx, stored, bytes.NewReader(buf.Bytes()), n, contentType)
	if errors.Is(err, ErrExists) {
		stored = StoredName(withSuffix(name, uuid.NewString()[:8]), now)
		err = u.store.Put(ctx, stored, bytes.NewReader(buf.Bytes()), n, contentType)
	}
	if err != nil {
		return report.Attachment{}, fmt.Errorf("store upload: %w", err)
	}

	return report.Attachment{
		Name:       name,
		Type:       contentType,
		URL:        URLPrefix + stored,
		Size:       n,
		UploadedAt: now,
	}, nil
}

// Open returns the stored object called name.
func (u *Uploader) Open(ctx context.Context, name string) (io.ReadCloser, Object, error) {
	rc, obj, err := u.store.Open(ctx, name)
	if err != nil {
		return nil, Object{}, err
	}
	if obj.ContentType == "" {
		obj.ContentType = DetectContentType(nil, name)
	}
	return rc, obj, nil
}

func withSuffix(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + suffix + ext
}
