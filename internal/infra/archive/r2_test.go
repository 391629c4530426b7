package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

func TestObjectKey(t *testing.T) {
	record := prediction.Record{ID: "abc", CreatedAt: time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)}
	require.Equal(t, "predictions/2024/01/31/abc.json", ObjectKey("predictions", record))
	require.Equal(t, "2024/01/31/abc.json", ObjectKey("", record))
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint("https://acct.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
	require.Equal(t, "", sanitizeEndpoint(""))
}

func TestNewR2ArchiveTrimsPrefix(t *testing.T) {
	a, err := NewR2Archive("http://localhost:9000", "key", "secret", "bucket", "auto", "/predictions/", nil)
	require.NoError(t, err)
	require.Equal(t, "predictions", a.prefix)
}

// s3Stub answers path-style requests for one bucket and refuses the first bucket check.
type s3Stub struct {
	mu         sync.Mutex
	heads      int
	failHeads  int
	objectPuts []string
	bucketPath string
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case r.Method == http.MethodHead && r.URL.Path == s.bucketPath:
		s.heads++
		if s.heads <= s.failHeads {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && r.URL.Path == s.bucketPath:
		// bucket creation is refused while the stub is failing
		w.WriteHeader(http.StatusForbidden)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, s.bucketPath+"/"):
		_, _ = io.Copy(io.Discard, r.Body)
		s.objectPuts = append(s.objectPuts, strings.TrimPrefix(r.URL.Path, s.bucketPath+"/"))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestR2ArchiveRetriesBucketCheckAfterFailure(t *testing.T) {
	stub := &s3Stub{failHeads: 1, bucketPath: "/drift"}
	server := httptest.NewServer(stub)
	defer server.Close()

	a, err := NewR2Archive(server.URL, "key", "secret", "drift", "us-east-1", "predictions", nil)
	require.NoError(t, err)

	record := prediction.Record{ID: "r1", CreatedAt: time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)}
	require.Error(t, a.Put(context.Background(), record))

	require.NoError(t, a.Put(context.Background(), record))
	record.ID = "r2"
	require.NoError(t, a.Put(context.Background(), record))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, 2, stub.heads, "the bucket is checked again after a failure, then never again")
	require.Equal(t, []string{"predictions/2024/01/31/r1.json", "predictions/2024/01/31/r2.json"}, stub.objectPuts)
}
