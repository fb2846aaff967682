package staging

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"CatalogSync/internal/config"
	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"
	"CatalogSync/internal/platform"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileProcessor fakes the platform upload endpoint and records the last
// uploaded file.
func fileProcessor(t *testing.T, reply string, status int) (*httptest.Server, *[]byte) {
	t.Helper()
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file-proccesor/", r.URL.Path)
		assert.Equal(t, "store", r.Header.Get("x-store-key"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		if f, _, err := r.FormFile("file"); err == nil {
			got, _ = io.ReadAll(f)
			f.Close()
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func platformClient(url string) *platform.Client {
	return platform.NewClient(url, "store", "token", 5*time.Second, logger.Nop())
}

func TestMultipart_LocationFieldPriority(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"uploadedFileUrl", `{"uploadedFileUrl":"https://cdn/a.json","location":"https://cdn/b.json"}`, "https://cdn/a.json"},
		{"location", `{"location":"https://cdn/b.json","url":"https://cdn/c.json"}`, "https://cdn/b.json"},
		{"url", `{"url":"https://cdn/c.json"}`, "https://cdn/c.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := fileProcessor(t, tt.reply, http.StatusOK)
			m := NewMultipart(platformClient(srv.URL), logger.Nop())

			staged, err := m.Stage(context.Background(), Payload{Name: "priced_catalog.json", Data: []byte(`[{"SKU":"A"}]`)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, staged.Location)
			assert.Empty(t, staged.Key)
			assert.Equal(t, `[{"SKU":"A"}]`, string(*got))
		})
	}
}

func TestMultipart_Failures(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		status int
	}{
		{"no location", `{"status":"ok"}`, http.StatusOK},
		{"relative location", `{"url":"/files/a.json"}`, http.StatusOK},
		{"not json", `<html>`, http.StatusOK},
		{"server error", `{"error":"boom"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fileProcessor(t, tt.reply, tt.status)
			_, err := NewMultipart(platformClient(srv.URL), logger.Nop()).Stage(context.Background(), Payload{Name: "x.json", Data: []byte("[]")})
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrStaging), "got %v", err)
		})
	}
}

func TestLocal_WritesThenUploads(t *testing.T) {
	srv, got := fileProcessor(t, `{"uploadedFileUrl":"https://cdn/x.json"}`, http.StatusOK)
	dir := filepath.Join(t.TempDir(), "staging")

	l := NewLocal(dir, NewMultipart(platformClient(srv.URL), logger.Nop()), logger.Nop())
	staged, err := l.Stage(context.Background(), Payload{Name: "priced_catalog.json", Data: []byte(`[1]`)})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.json", staged.Location)
	assert.Equal(t, `[1]`, string(*got))

	onDisk, err := os.ReadFile(filepath.Join(dir, "priced_catalog.json"))
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(onDisk))
}

type fakeS3 struct {
	putKey     string
	putType    string
	putBody    []byte
	putErr     error
	presigned  time.Duration
	presignErr error
	url        string

	putDeadline    time.Time
	putHasDeadline bool
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putDeadline, f.putHasDeadline = ctx.Deadline()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putKey = *in.Key
	f.putType = *in.ContentType
	f.putBody, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.presigned = opts.Expires
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	return &v4.PresignedHTTPRequest{URL: f.url + *in.Key, Method: http.MethodGet}, nil
}

func TestS3_PutAndPresign(t *testing.T) {
	fake := &fakeS3{url: "https://bucket.s3.amazonaws.com/"}
	u := newS3("bucket", "pricing_data", 0, 0, fake, fake, logger.Nop())
	u.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	staged, err := u.Stage(context.Background(), Payload{Name: "ignored.json", Data: []byte(`[]`)})
	require.NoError(t, err)

	assert.Equal(t, "pricing_data/priced_catalog_20250304_050607.json", fake.putKey)
	assert.Equal(t, "application/json", fake.putType)
	assert.Equal(t, `[]`, string(fake.putBody))
	assert.Equal(t, time.Hour, fake.presigned)
	assert.Equal(t, fake.putKey, staged.Key)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/pricing_data/priced_catalog_20250304_050607.json", staged.Location)
}

func TestS3_PutFailure(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("access denied")}
	_, err := newS3("bucket", "", time.Minute, time.Second, fake, fake, logger.Nop()).Stage(context.Background(), Payload{Data: []byte(`[]`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStaging))
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3_StageIsBoundedByTimeout(t *testing.T) {
	fake := &fakeS3{url: "https://bucket.s3.amazonaws.com/"}
	u := newS3("bucket", "", 0, 5*time.Second, fake, fake, logger.Nop())

	before := time.Now()
	_, err := u.Stage(context.Background(), Payload{Data: []byte(`[]`)})
	require.NoError(t, err)

	require.True(t, fake.putHasDeadline, "PutObject must run under a deadline")
	assert.WithinDuration(t, before.Add(5*time.Second), fake.putDeadline, time.Second)
}

func TestS3_DefaultTimeout(t *testing.T) {
	fake := &fakeS3{url: "https://bucket.s3.amazonaws.com/"}
	before := time.Now()
	_, err := newS3("bucket", "", 0, 0, fake, fake, logger.Nop()).Stage(context.Background(), Payload{Data: []byte(`[]`)})
	require.NoError(t, err)

	require.True(t, fake.putHasDeadline)
	assert.WithinDuration(t, before.Add(60*time.Second), fake.putDeadline, time.Second)
}

func TestS3_PresignFailureKeepsKey(t *testing.T) {
	fake := &fakeS3{presignErr: errors.New("no credentials")}
	u := newS3("bucket", "pricing_data", 0, 0, fake, fake, logger.Nop())

	staged, err := u.Stage(context.Background(), Payload{Data: []byte(`[]`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStaging))
	assert.Equal(t, fake.putKey, staged.Key)
	assert.Empty(t, staged.Location)
}

func TestNew_SelectsMode(t *testing.T) {
	cfg := &config.Config{}
	pc := platformClient("https://platform.example")

	cfg.Staging.Mode = config.StagingMultipart
	u, err := New(context.Background(), cfg, pc, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "multipart", u.Name())

	cfg.Staging.Mode = config.StagingLocal
	cfg.Staging.LocalDir = t.TempDir()
	u, err = New(context.Background(), cfg, pc, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", u.Name())

	cfg.Staging.Mode = config.StagingS3
	_, err = New(context.Background(), cfg, pc, logger.Nop())
	assert.True(t, errors.Is(err, model.ErrConfiguration))

	cfg.Staging.Mode = "ftp"
	_, err = New(context.Background(), cfg, pc, logger.Nop())
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}
