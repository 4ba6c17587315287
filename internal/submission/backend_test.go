package submission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileBackend(t *testing.T) Backend {
	t.Helper()
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "data", "submissions.json"))
	require.NoError(t, err)
	return b
}

func newRedisBackend(t *testing.T) Backend {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client, "test:submissions")
}

func backendFactories() map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		BackendFile:  newFileBackend,
		BackendRedis: newRedisBackend,
	}
}

func testRecord(id int64, team string) Record {
	return Record{
		ID:                id,
		TeamID:            team,
		TeamName:          "Team " + team,
		QuestionID:        int(id),
		Question:          "q",
		Answer:            "a",
		IsCorrect:         true,
		SubmittedAt:       "10:00:00 AM",
		CreatedAt:         "2026-02-20T10:00:00.000Z",
		OriginalPhotoName: defaultPhotoName,
		PhotoMimeType:     "image/jpeg",
		PhotoPath:         fmt.Sprintf("/uploads/%d.jpg", id),
	}
}

func TestBackends_AppendQueryReset(t *testing.T) {
	for name, factory := range backendFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			defer b.Close()

			next, err := b.NextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), next)

			teams := []string{"1", "2", "1", "3", "1"}
			for i, team := range teams {
				id, err := b.NextID(ctx)
				require.NoError(t, err)
				assert.Equal(t, int64(i+1), id)
				require.NoError(t, b.Append(ctx, testRecord(id, team)))
			}

			all, err := b.Query(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 5)
			for i, rec := range all {
				assert.Equal(t, int64(i+1), rec.ID)
			}
			assert.Equal(t, testRecord(4, "3"), all[3])

			team1, err := b.Query(ctx, "1")
			require.NoError(t, err)
			require.Len(t, team1, 3)
			assert.Equal(t, []int64{1, 3, 5}, []int64{team1[0].ID, team1[1].ID, team1[2].ID})

			none, err := b.Query(ctx, "99")
			require.NoError(t, err)
			assert.NotNil(t, none)
			assert.Empty(t, none)

			assert.ErrorIs(t, b.Append(ctx, testRecord(3, "2")), ErrDuplicateID)

			require.NoError(t, b.ResetAll(ctx))
			all, err = b.Query(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, all)
			next, err = b.NextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), next)
		})
	}
}

func TestFileBackend_LayoutAndRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "submissions.json")

	b, err := NewFileBackend(path)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	require.NoError(t, b.Append(ctx, testRecord(1, "7")))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {\n    \"id\": 1,")

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	next, err := reopened.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
}

func TestFileBackend_CorruptFileIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not an array"), 0o644))

	b, err := NewFileBackend(path)
	require.NoError(t, err)
	_, err = b.Query(context.Background(), "")
	var se *StorageError
	assert.ErrorAs(t, err, &se)
}

func TestRedisBackend_NextIDSurvivesGaps(t *testing.T) {
	ctx := context.Background()
	b := newRedisBackend(t)

	require.NoError(t, b.Append(ctx, testRecord(4, "1")))
	next, err := b.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), next)
}

func TestRedisBackend_ResetLeavesOtherKeys(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	b := NewRedisBackend(client, "hunt:submissions")
	require.NoError(t, b.Append(ctx, testRecord(1, "1")))
	require.NoError(t, mr.Set("hunt:local:huntProgress:1", "{}"))

	require.NoError(t, b.ResetAll(ctx))
	assert.False(t, mr.Exists("hunt:submissions:record:1"))
	assert.False(t, mr.Exists("hunt:submissions:ids"))
	assert.False(t, mr.Exists("hunt:submissions:team:1"))
	assert.True(t, mr.Exists("hunt:local:huntProgress:1"))
}
