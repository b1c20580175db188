package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/database"
)

// fakeStore records uploads and deletions in memory.
type fakeStore struct {
	objects map[string][]byte
	deleted []string
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]StoredObject, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []StoredObject
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, StoredObject{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func backupKey(age time.Duration) string {
	return backupArchivePrefix + time.Now().Add(-age).Format(backupArchiveTimeFmt) + ".tar.gz"
}

func TestCreateAndUploadBackup(t *testing.T) {
	dir := t.TempDir()
	catalog := openFileDB(t, dir, "catalog")
	_, err := catalog.Exec("CREATE TABLE lotteries (id TEXT PRIMARY KEY)")
	require.NoError(t, err)
	_, err = catalog.Exec("INSERT INTO lotteries VALUES ('megasena')")
	require.NoError(t, err)
	cache := openFileDB(t, dir, "cache")
	_, err = cache.Exec("CREATE TABLE engine_cache (key TEXT PRIMARY KEY)")
	require.NoError(t, err)

	store := newFakeStore()
	local := NewBackupService(map[string]*database.DB{
		"catalog": catalog,
		"cache":   cache,
	}, dir, zerolog.Nop())
	service := NewS3BackupService(store, local, dir, zerolog.Nop())

	require.NoError(t, service.CreateAndUploadBackup(context.Background()))
	require.Len(t, store.objects, 1)

	var key string
	for k := range store.objects {
		key = k
	}
	assert.True(t, strings.HasPrefix(key, backupArchivePrefix))
	assert.True(t, strings.HasSuffix(key, ".tar.gz"))

	// The archive holds the catalog snapshot and the manifest, but not
	// the rebuildable cache database.
	entries := readArchive(t, store.objects[key])
	assert.Contains(t, entries, "catalog.db")
	assert.Contains(t, entries, "backup-metadata.json")
	assert.NotContains(t, entries, "cache.db")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(entries["backup-metadata.json"], &metadata))
	require.Len(t, metadata.Databases, 1)
	assert.Equal(t, "catalog", metadata.Databases[0].Name)
	assert.True(t, strings.HasPrefix(metadata.Databases[0].Checksum, "sha256:"))
	assert.Equal(t, int64(len(entries["catalog.db"])), metadata.Databases[0].SizeBytes)
}

func TestListBackupsNewestFirst(t *testing.T) {
	store := newFakeStore()
	oldKey := backupKey(72 * time.Hour)
	newKey := backupKey(1 * time.Hour)
	store.objects[oldKey] = []byte("old")
	store.objects[newKey] = []byte("new")
	store.objects["unrelated.txt"] = []byte("x")
	store.objects[backupArchivePrefix+"garbage.tar.gz"] = []byte("y")

	service := NewS3BackupService(store, nil, t.TempDir(), zerolog.Nop())
	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)

	require.Len(t, backups, 2)
	assert.Equal(t, newKey, backups[0].Filename)
	assert.Equal(t, oldKey, backups[1].Filename)
	assert.GreaterOrEqual(t, backups[1].AgeHours, int64(71))
}

func TestRotateOldBackupsKeepsNewestThree(t *testing.T) {
	store := newFakeStore()
	keys := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		key := backupKey(time.Duration(i*100*24) * time.Hour)
		store.objects[key] = []byte("backup")
		keys = append(keys, key)
	}

	service := NewS3BackupService(store, nil, t.TempDir(), zerolog.Nop())
	require.NoError(t, service.RotateOldBackups(context.Background(), 30))

	// The three newest survive even though two of them are way past
	// retention; the two oldest go.
	assert.Len(t, store.objects, 3)
	assert.ElementsMatch(t, []string{keys[3], keys[4]}, store.deleted)
}

func TestRotateOldBackupsRetentionZeroKeepsAll(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 5; i++ {
		store.objects[backupKey(time.Duration(i*100*24)*time.Hour)] = []byte("backup")
	}

	service := NewS3BackupService(store, nil, t.TempDir(), zerolog.Nop())
	require.NoError(t, service.RotateOldBackups(context.Background(), 0))
	assert.Len(t, store.objects, 5)
}

func TestRotateOldBackupsListError(t *testing.T) {
	store := newFakeStore()
	store.listErr = fmt.Errorf("bucket unavailable")

	service := NewS3BackupService(store, nil, t.TempDir(), zerolog.Nop())
	assert.Error(t, service.RotateOldBackups(context.Background(), 30))
}

// readArchive expands a tar.gz into name -> contents.
func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	entries := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = content
	}
	return entries
}
