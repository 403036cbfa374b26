package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/evidence/")
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "ticket-7/1700000000-photo.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"), 10)
	require.NoError(t, err)
	require.Equal(t, "/evidence/ticket-7/1700000000-photo.jpg", obj.URL)
	require.EqualValues(t, 10, obj.Size)

	data, err := os.ReadFile(filepath.Join(dir, "ticket-7", "1700000000-photo.jpg"))
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/evidence")
	require.NoError(t, err)
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../b"} {
		_, err := store.Put(context.Background(), key, "text/plain", strings.NewReader("x"), 1)
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestSanitizeName(t *testing.T) {
	require.Equal(t, "foto_de_la_obra.jpg", SanitizeName("foto de la obra.jpg"))
	require.Equal(t, "evil.sh", SanitizeName("../../evil.sh"))
	require.Equal(t, "report.pdf", SanitizeName(`C:\Users\tech\report.pdf`))
	require.Equal(t, "file", SanitizeName("..."))
}

func TestContentTypeFor(t *testing.T) {
	require.Equal(t, "application/pdf", ContentTypeFor("acta.pdf", ""))
	require.Equal(t, "application/octet-stream", ContentTypeFor("blob", ""))
	require.Equal(t, "video/mp4", ContentTypeFor("clip", "video/mp4"))
}
