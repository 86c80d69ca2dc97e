package generation

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/snapdish/recipegen-be/internal/blobstore"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// legacyBlob encodes jobs the way a pre-strip-and-cap version did: raw
// msgpack with thumbnails intact.
func legacyBlob(t *testing.T, jobs []*Job) []byte {
	t.Helper()
	flat := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		flat = append(flat, *j)
	}
	blob, err := msgpack.Marshal(flat)
	require.NoError(t, err)
	return blob
}

func TestMigrate_OversizedBlob(t *testing.T) {
	now := time.Now().UTC()
	store := blobstore.NewMemory()

	var jobs []*Job
	for i := 0; i < 50; i++ {
		job := testJob(t, StatusFinished, now.Add(-time.Duration(i)*time.Minute))
		job.ThumbnailBytes = make([]byte, 4096)
		jobs = append(jobs, job)
	}

	blob := legacyBlob(t, jobs)
	sizeCap := 16 * 1024
	require.Greater(t, len(blob), sizeCap)
	store.Seed(blob)

	err := Migrate(context.Background(), store, MigrateConfig{SizeCap: sizeCap, Keep: 10}, discard())
	require.NoError(t, err)

	migrated, err := store.Load(context.Background())
	require.NoError(t, err)

	decoded, err := DecodeJobs(migrated)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(decoded), 10)
	for _, j := range decoded {
		assert.Empty(t, j.ThumbnailBytes)
	}

	// The most recently created jobs are the ones kept.
	require.NotEmpty(t, decoded)
	assert.Equal(t, jobs[0].ID, decoded[0].ID)
}

func TestMigrate_BlobWithinCapUntouched(t *testing.T) {
	store := blobstore.NewMemory()
	blob, err := EncodeJobs([]*Job{testJob(t, StatusFinished, time.Now().UTC())})
	require.NoError(t, err)
	store.Seed(blob)

	err = Migrate(context.Background(), store, MigrateConfig{SizeCap: 1 << 20, Keep: 10}, discard())
	require.NoError(t, err)

	after, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, blob, after)
}

func TestMigrate_CorruptBlobDiscarded(t *testing.T) {
	store := blobstore.NewMemory()
	garbage := make([]byte, 64*1024)
	for i := range garbage {
		garbage[i] = byte(i % 251)
	}
	store.Seed(garbage)

	err := Migrate(context.Background(), store, MigrateConfig{SizeCap: 1024, Keep: 10}, discard())
	require.NoError(t, err, "corruption must never fail startup")

	after, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestMigrate_NoBlob(t *testing.T) {
	store := blobstore.NewMemory()
	err := Migrate(context.Background(), store, MigrateConfig{SizeCap: 1024, Keep: 10}, discard())
	assert.NoError(t, err)
}
