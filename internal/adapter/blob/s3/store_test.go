package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob/core"
)

// --- fake S3 transport ---

type mockObj struct {
	body        []byte
	contentType string
}

// mockRoundTripper serves the path-style Put/Get/Delete object calls the store makes.
type mockRoundTripper struct {
	mu    sync.Mutex
	state map[string]mockObj
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, _ := url.PathUnescape(req.URL.Path)
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch req.Method {
	case http.MethodPut:
		if req.Header.Get("If-None-Match") == "*" {
			if _, exists := m.state[key]; exists {
				return respond(http.StatusPreconditionFailed, `<Error><Code>PreconditionFailed</Code></Error>`, nil), nil
			}
		}
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.state[key] = mockObj{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, "", http.Header{"Etag": {`"etag123"`}}), nil
	case http.MethodGet:
		st, ok := m.state[key]
		if !ok {
			return respond(http.StatusNotFound, `<Error><Code>NoSuchKey</Code></Error>`, nil), nil
		}
		return respond(http.StatusOK, string(st.body), http.Header{
			"Content-Length": {strconv.Itoa(len(st.body))},
			"Content-Type":   {st.contentType},
			"Etag":           {`"etag123"`},
			"Last-Modified":  {time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}), nil
	case http.MethodDelete:
		delete(m.state, key)
		return respond(http.StatusNoContent, "", nil), nil
	}
	return respond(http.StatusNotImplemented, "", nil), nil
}

func respond(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	if body != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/xml")
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}

// decodeChunked unwraps a single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := bytes.Split(b, []byte("\r\n"))
	if len(parts) < 3 || string(parts[2]) != "0" {
		return nil, false
	}
	size, err := strconv.ParseInt(string(parts[0]), 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return parts[1], true
}

func newMockStore(t *testing.T) (*Store, *mockRoundTripper) {
	t.Helper()
	rt := &mockRoundTripper{state: make(map[string]mockObj)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return newStore(client, "mock-bucket"), rt
}

// --- tests ---

func TestStore_PutGetDelete(t *testing.T) {
	s, rt := newMockStore(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "uploads/j1/sites.csv", strings.NewReader("name,city,state\n"), core.PutOptions{ContentType: "text/csv"})
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size)
	assert.Equal(t, "etag123", info.ETag)
	assert.Equal(t, "name,city,state\n", string(rt.state["uploads/j1/sites.csv"].body))

	got, rc, err := s.Get(ctx, "uploads/j1/sites.csv")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "name,city,state\n", string(b))
	assert.Equal(t, "text/csv", got.ContentType)
	assert.Equal(t, int64(16), got.Size)

	deleted, err := s.Delete(ctx, "uploads/j1/sites.csv")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, rt.state)
}

func TestStore_PutExisting(t *testing.T) {
	s, _ := newMockStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "k.csv", strings.NewReader("a"), core.PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "k.csv", strings.NewReader("b"), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrExists)
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newMockStore(t)

	_, _, err := s.Get(context.Background(), "missing.csv")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNew_WithEndpoint(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:          "uploads",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, core.DriverS3, s.Driver())
}
