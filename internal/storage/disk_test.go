package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Smallest valid PNG header; enough for content sniffing.
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

func newStore(t *testing.T, maxSize int64) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir(), maxSize, []string{"image/*", "application/pdf"})
	require.NoError(t, err)
	return s
}

func TestSave_SniffsTypeAndSlugsName(t *testing.T) {
	s := newStore(t, 1<<20)

	stored, err := s.Save(context.Background(), "Foto del Techo.PNG", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	assert.Equal(t, "image/png", stored.MimeType)
	assert.True(t, strings.HasPrefix(stored.Path, "foto-del-techo-"), stored.Path)
	assert.True(t, strings.HasSuffix(stored.Path, ".png"))
	assert.Equal(t, int64(len(pngBytes)), stored.Size)

	data, err := os.ReadFile(filepath.Join(s.Root(), stored.Path))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestSave_IgnoresDeclaredExtension(t *testing.T) {
	s := newStore(t, 1<<20)

	_, err := s.Save(context.Background(), "innocent.png", strings.NewReader("#!/bin/sh\nrm -rf /\n"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	entries, _ := os.ReadDir(s.Root())
	assert.Empty(t, entries)
}

func TestSave_RejectsOversizedFiles(t *testing.T) {
	s := newStore(t, int64(len(pngBytes)+10))

	big := append(append([]byte{}, pngBytes...), make([]byte, 100)...)
	_, err := s.Save(context.Background(), "big.png", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, _ := os.ReadDir(s.Root())
	assert.Empty(t, entries, "partial file removed")
}

func TestAllowed(t *testing.T) {
	s := newStore(t, 0)
	assert.True(t, s.Allowed("image/jpeg"))
	assert.True(t, s.Allowed("application/pdf"))
	assert.False(t, s.Allowed("text/plain; charset=utf-8"))
	assert.False(t, s.Allowed("imagex/png"))

	open, err := NewDiskStore(t.TempDir(), 0, nil)
	require.NoError(t, err)
	assert.True(t, open.Allowed("text/plain"))
}

func TestResolve_ConfinesToRoot(t *testing.T) {
	s := newStore(t, 0)

	_, err := s.Resolve("../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = s.Resolve("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = s.Resolve("")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	full, err := s.Resolve("a.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "a.png"), full)
}

func TestRemoveFiles(t *testing.T) {
	s := newStore(t, 0)
	stored, err := s.Save(context.Background(), "a.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, s.RemoveFiles(context.Background(), []string{stored.Path, "already-gone.png"}))
	_, err = os.Stat(filepath.Join(s.Root(), stored.Path))
	assert.True(t, os.IsNotExist(err))

	err = s.RemoveFiles(context.Background(), []string{"../escape.png"})
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
