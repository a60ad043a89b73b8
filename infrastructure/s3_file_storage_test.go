package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects       map[string][]byte
	contentType   map[string]string
	contentLength map[string]int64
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:       make(map[string][]byte),
		contentType:   make(map[string]string),
		contentLength: make(map[string]int64),
	}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.contentType[key] = aws.ToString(in.ContentType)
	f.contentLength[key] = aws.ToInt64(in.ContentLength)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3FileStorage(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	storage := NewS3FileStorageWithClient(client, "videos")

	key, err := storage.Save(ctx, strings.NewReader("0123456789"), "original_videos/a.mp4")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ct := client.contentType["videos/"+key]; ct == "" {
		t.Error("Expected a content type to be set")
	}
	if cl := client.contentLength["videos/"+key]; cl != 10 {
		t.Errorf("Expected ContentLength 10, got %d", cl)
	}

	size, err := storage.Size(ctx, key)
	if err != nil || size != 10 {
		t.Errorf("Expected size 10, got %d (%v)", size, err)
	}

	if err := storage.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := storage.Size(ctx, key); err == nil {
		t.Error("Expected Size to fail after delete")
	}
}

// putRecorder is an S3 endpoint that records the shape of PutObject requests.
type putRecorder struct {
	mu               sync.Mutex
	contentLength    int64
	transferEncoding []string
	decodedLength    string
	contentEncoding  string
	body             []byte
}

func (p *putRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	p.mu.Lock()
	p.contentLength = r.ContentLength
	p.transferEncoding = r.TransferEncoding
	p.decodedLength = r.Header.Get("X-Amz-Decoded-Content-Length")
	p.contentEncoding = r.Header.Get("Content-Encoding")
	p.body = body
	p.mu.Unlock()
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func newEndpointS3Client(srv *httptest.Server) *s3.Client {
	return s3.New(s3.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String(srv.URL),
		UsePathStyle:     true,
		HTTPClient:       srv.Client(),
		RetryMaxAttempts: 1,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET", Source: "test"}, nil
		}),
	})
}

func TestS3FileStorageSendsSizedBody(t *testing.T) {
	data := mp4Bytes(64 * 1024)

	servers := map[string]func(http.Handler) *httptest.Server{
		"tls":   httptest.NewTLSServer,
		"plain": httptest.NewServer,
	}
	bodies := map[string]func() io.Reader{
		"seekable": func() io.Reader { return bytes.NewReader(data) },
		"stream": func() io.Reader {
			return io.MultiReader(bytes.NewReader(data[:3072]), bytes.NewReader(data[3072:]))
		},
	}

	for serverName, newServer := range servers {
		for bodyName, body := range bodies {
			t.Run(serverName+"/"+bodyName, func(t *testing.T) {
				rec := &putRecorder{}
				srv := newServer(rec)
				defer srv.Close()

				storage := NewS3FileStorageWithClient(newEndpointS3Client(srv), "videos")
				if _, err := storage.Save(context.Background(), body(), "original_videos/a.mp4"); err != nil {
					t.Fatalf("Save failed: %v", err)
				}

				rec.mu.Lock()
				defer rec.mu.Unlock()
				if rec.contentLength < 0 || len(rec.transferEncoding) > 0 {
					t.Fatalf("Expected a Content-Length, got length %d transfer-encoding %v",
						rec.contentLength, rec.transferEncoding)
				}
				size := rec.contentLength
				if rec.decodedLength != "" {
					size, _ = strconv.ParseInt(rec.decodedLength, 10, 64)
				}
				if size != int64(len(data)) {
					t.Errorf("Expected object size %d, got %d", len(data), size)
				}
				if !strings.Contains(rec.contentEncoding, "aws-chunked") && !bytes.Equal(rec.body, data) {
					t.Errorf("Expected the object bytes to be sent unchanged, got %d bytes", len(rec.body))
				}
			})
		}
	}
}
