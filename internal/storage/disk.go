package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/estivenmendezr98/TAREAS/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofrs/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrOutsideRoot     = errors.New("path escapes upload directory")
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

// StoredFile describes a file written by DiskStore. Path is relative to the
// store root and is what gets persisted.
type StoredFile struct {
	Path     string
	MimeType string
	Size     int64
}

// DiskStore keeps evidence files under one root directory.
type DiskStore struct {
	root         string
	maxSize      int64
	allowedTypes []string
}

func NewDiskStore(root string, maxSize int64, allowedTypes []string) (*DiskStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: abs, maxSize: maxSize, allowedTypes: allowedTypes}, nil
}

func NewDiskStoreFrom(cfg *config.Config) (*DiskStore, error) {
	return NewDiskStore(cfg.Storage.UploadDir, cfg.Storage.MaxUploadSize, cfg.Storage.AllowedTypes)
}

func (s *DiskStore) Root() string {
	return s.root
}

// Allowed reports whether a detected MIME type may be stored. Entries such
// as "image/*" match a whole top-level type.
func (s *DiskStore) Allowed(mime string) bool {
	if len(s.allowedTypes) == 0 {
		return true
	}
	var exact []string
	for _, allowed := range s.allowedTypes {
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(mime, prefix+"/") {
				return true
			}
			continue
		}
		exact = append(exact, allowed)
	}
	return mimetype.EqualsAny(mime, exact...)
}

// Save sniffs the content type from the first bytes of r, rejects types that
// are not allowed, and writes the file under a slugged unique name. The
// declared name only contributes to the stored file name.
func (s *DiskStore) Save(ctx context.Context, originalName string, r io.Reader) (*StoredFile, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !s.Allowed(mtype.String()) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	name, err := storedName(originalName, mtype.Extension())
	if err != nil {
		return nil, err
	}
	full := filepath.Join(s.root, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	if s.maxSize > 0 {
		body = io.LimitReader(body, s.maxSize+1)
	}
	written, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: body})
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		os.Remove(full)
		return nil, fmt.Errorf("write file: %w", copyErr)
	case closeErr != nil:
		os.Remove(full)
		return nil, fmt.Errorf("close file: %w", closeErr)
	case s.maxSize > 0 && written > s.maxSize:
		os.Remove(full)
		return nil, ErrTooLarge
	}

	return &StoredFile{Path: name, MimeType: mtype.String(), Size: written}, nil
}

// Resolve maps a stored relative path to an absolute one inside the root.
func (s *DiskStore) Resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", ErrOutsideRoot
	}
	full := filepath.Join(s.root, rel)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *DiskStore) Remove(rel string) error {
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveFiles satisfies lifecycle.FileRemover by deleting files directly.
func (s *DiskStore) RemoveFiles(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Remove(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func storedName(originalName, ext string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	stem := slug.Make(base)
	if stem == "" {
		stem = "evidence"
	}
	if len(stem) > 60 {
		stem = stem[:60]
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s%s", stem, id.String()[:8], ext), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
