package filestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
)

// fakeS3 serves the path-style object API of a single bucket from memory.
type fakeS3 struct {
	bucket string

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + f.bucket
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "no such bucket", http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && key == "":
		f.list(w, r.URL.Query().Get("prefix"))
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
	case r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key></Error>`, key)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write(body)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) contentType(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[key]
}

func (f *fakeS3) list(w http.ResponseWriter, prefix string) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><IsTruncated>false</IsTruncated>", f.bucket, prefix, len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><LastModified>%s</LastModified><Size>%d</Size></Contents>",
			k, time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), len(f.objects[k]))
	}
	b.WriteString("</ListBucketResult>")
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(b.String()))
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{bucket: "elimu", objects: make(map[string][]byte), types: make(map[string]string)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(core.S3Config{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		Bucket:    "elimu",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	ctx := context.Background()

	p1, err := store.Save(ctx, strings.NewReader("questions"), "quiz 1.pdf", core.CategoryQuizzes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p1, "quizzes/"), p1)
	assert.Equal(t, "quiz_1.pdf", core.OriginalFileName(p1[len("quizzes/"):]))
	assert.Equal(t, "application/pdf", fake.contentType(p1))

	p2, err := store.Save(ctx, strings.NewReader("answer"), "answer.txt", core.CategorySubmissions)
	require.NoError(t, err)

	_, err = store.Save(ctx, strings.NewReader("x"), "x.pdf", core.FileCategory("etc"))
	assert.Equal(t, core.ErrInvalidFilePath, err)

	t.Run("open", func(t *testing.T) {
		rc, err := store.Open(ctx, p1)
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "questions", string(body))
	})

	t.Run("open missing", func(t *testing.T) {
		_, err := store.Open(ctx, "quizzes/nope.pdf")
		assert.Equal(t, core.ErrFileNotFound, err)

		_, err = store.Open(ctx, "../etc/passwd")
		assert.Equal(t, core.ErrFileNotFound, err)
	})

	t.Run("list", func(t *testing.T) {
		files, err := store.List(ctx, core.CategoryQuizzes)
		require.NoError(t, err)
		if assert.Len(t, files, 1) {
			assert.Equal(t, p1, files[0].Path)
			assert.False(t, files[0].ModifiedAt.IsZero())
		}
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, p2))
		_, err := store.Open(ctx, p2)
		assert.Equal(t, core.ErrFileNotFound, err)
		assert.NoError(t, store.Delete(ctx, p2), "deleting twice")

		files, err := store.List(ctx, core.CategorySubmissions)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}
