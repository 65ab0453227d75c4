package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failAll error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

// providerContract exercises the FileProvider behaviour shared by every
// implementation.
func providerContract(t *testing.T, p FileProvider) {
	ctx := context.Background()

	exists, err := p.Exists(ctx, "memory.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = p.Read(ctx, "memory.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.Write(ctx, "memory.json", []byte(`{"entries":[]}`)))
	require.NoError(t, p.Write(ctx, "backups/2026.json", []byte(`{}`)))

	exists, err = p.Exists(ctx, "memory.json")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := p.Read(ctx, "memory.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries":[]}`, string(data))

	files, err := p.List(ctx, "backups")
	require.NoError(t, err)
	assert.Equal(t, []string{"backups/2026.json"}, files)

	require.NoError(t, p.Delete(ctx, "memory.json"))
	require.NoError(t, p.Delete(ctx, "memory.json"))
	exists, err = p.Exists(ctx, "memory.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = p.Read(ctx, "../escape.json")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.ErrorIs(t, p.Write(ctx, "/etc/passwd", nil), ErrInvalidPath)
}

func TestLocalFileProvider(t *testing.T) {
	providerContract(t, NewLocalFileProvider(t.TempDir()))
}

func TestLocalFileProvider_ListMissingDir(t *testing.T) {
	p := NewLocalFileProvider(filepath.Join(t.TempDir(), "absent"))
	files, err := p.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestS3FileProvider(t *testing.T) {
	t.Run("no prefix", func(t *testing.T) {
		providerContract(t, NewS3FileProvider(newFakeS3(), "bucket", ""))
	})
	t.Run("with prefix", func(t *testing.T) {
		fake := newFakeS3()
		providerContract(t, NewS3FileProvider(fake, "bucket", "companion/"))

		require.NoError(t, NewS3FileProvider(fake, "bucket", "companion").Write(context.Background(), "x.json", []byte("{}")))
		_, ok := fake.objects["companion/x.json"]
		assert.True(t, ok)
	})
}

func TestS3FileProvider_RealErrorsPropagate(t *testing.T) {
	fake := newFakeS3()
	fake.failAll = errors.New("access denied")
	p := NewS3FileProvider(fake, "bucket", "")

	_, err := p.Exists(context.Background(), "memory.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = p.List(context.Background(), "")
	assert.Error(t, err)
}

func TestPrefixedFileProvider(t *testing.T) {
	ctx := context.Background()
	root := NewLocalFileProvider(t.TempDir())
	m := NewWithProvider(BackendLocal, root)

	providerContract(t, m.GetProvider(NamespaceMemory))

	memory := m.GetProvider(NamespaceMemory)
	backups := m.GetProvider(NamespaceBackups)
	require.NoError(t, memory.Write(ctx, "memory.json", []byte("{}")))

	exists, err := backups.Exists(ctx, "memory.json")
	require.NoError(t, err)
	assert.False(t, exists, "namespaces are isolated")

	exists, err = root.Exists(ctx, "memory/memory.json")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Same(t, root, m.GetProvider("").(*LocalFileProvider))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()

	dir := filepath.Join(t.TempDir(), "data")
	m, err := Open(ctx, Options{Backend: BackendLocal, LocalDir: dir}, log)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, m.Backend())
	assert.DirExists(t, dir)

	_, err = Open(ctx, Options{Backend: BackendLocal}, log)
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: BackendS3}, log)
	assert.ErrorContains(t, err, "bucket is required")

	_, err = Open(ctx, Options{Backend: "git"}, log)
	assert.ErrorContains(t, err, "unsupported storage backend")
}
