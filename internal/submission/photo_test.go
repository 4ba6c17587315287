package submission

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoFileName(t *testing.T) {
	at := time.UnixMilli(1771581600123)
	assert.Equal(t, "1771581600123-team7-q5.jpg", PhotoFileName(at, "7", "5", ".jpg"))
	assert.Equal(t, "1771581600123-teametcpasswd-q12.png", PhotoFileName(at, "../../etc/passwd", "1/2", ".png"))
	assert.Equal(t, "1771581600123-teamred_team-q-1.jpg", PhotoFileName(at, "Red_Team", "-1", ".jpg"))

	long := PhotoFileName(at, strings.Repeat("a", 100), "1", ".jpg")
	assert.Equal(t, "1771581600123-team"+strings.Repeat("a", 40)+"-q1.jpg", long)
}

func TestFilePhotoStore_StoreAndOpen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewFilePhotoStore(dir)
	require.NoError(t, err)

	at := time.UnixMilli(1000)
	ref, err := store.Store(ctx, Photo{Data: fakeJPEG, MimeType: "image/jpeg"}, "7", "1", at)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1000-team7-q1.jpg", ref.Path)
	assert.Empty(t, ref.DataURL)

	// same millisecond, same team and question
	again, err := store.Store(ctx, Photo{Data: []byte("second"), MimeType: "image/jpeg"}, "7", "1", at)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1000-team7-q1-2.jpg", again.Path)

	f, info, err := store.Open("1000-team7-q1.jpg")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(len(fakeJPEG)), info.Size())

	require.NoError(t, store.Remove(ctx, again))
	_, _, err = store.Open("1000-team7-q1-2.jpg")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestFilePhotoStore_OpenRejectsTraversal(t *testing.T) {
	store, err := NewFilePhotoStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../secret", "a/../../secret", "..", "/etc/passwd", `..\secret`, ""} {
		_, _, err := store.Open(name)
		assert.ErrorIs(t, err, ErrForbiddenPath, name)
	}
	_, _, err = store.Open("missing.jpg")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestFilePhotoStore_RemoveAll(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewFilePhotoStore(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.Store(ctx, Photo{Data: fakeJPEG, MimeType: "image/png"}, "1", "1", time.UnixMilli(int64(i)))
		require.NoError(t, err)
	}
	require.NoError(t, store.RemoveAll(ctx))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, os.RemoveAll(dir))
	assert.NoError(t, store.RemoveAll(ctx))
}

func TestInlinePhotoStore(t *testing.T) {
	ref, err := InlinePhotoStore{}.Store(context.Background(), Photo{Data: fakeJPEG, MimeType: "image/png"}, "1", "1", time.Now())
	require.NoError(t, err)
	assert.Empty(t, ref.Path)

	back, err := DecodeDataURL(ref.DataURL)
	require.NoError(t, err)
	assert.Equal(t, fakeJPEG, back.Data)
	assert.Equal(t, "image/png", back.MimeType)
}
