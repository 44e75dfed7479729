// ABOUTME: Tests for S3Storage using a mock S3Client.
// ABOUTME: Covers key validation, URL construction, and passthrough to the client.
package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type mockS3 struct {
	putKey      string
	putType     string
	deleteKey   string
	putCalled   bool
	deleteCalled bool
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.putCalled = true
	m.putKey = *in.Key
	m.putType = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.deleteCalled = true
	m.deleteKey = *in.Key
	return &s3.DeleteObjectOutput{}, nil
}

func TestPutReturnsPublicURL(t *testing.T) {
	t.Parallel()
	mock := &mockS3{}
	s := NewS3WithClient(mock, S3Config{Bucket: "attachments", Region: "us-east-1"})

	url, err := s.Put(context.Background(), "/tasks/123/a.png", "image/png", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mock.putCalled {
		t.Fatal("PutObject was not called")
	}
	if mock.putKey != "tasks/123/a.png" {
		t.Errorf("key = %q, want leading slash stripped", mock.putKey)
	}
	want := "https://attachments.s3.us-east-1.amazonaws.com/tasks/123/a.png"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestPutRejectsTraversal(t *testing.T) {
	t.Parallel()
	s := NewS3WithClient(&mockS3{}, S3Config{Bucket: "b", Region: "r"})
	if _, err := s.Put(context.Background(), "../etc/passwd", "", strings.NewReader("")); err == nil {
		t.Error("Put with .. in key should fail")
	}
}

func TestPutDefaultsContentType(t *testing.T) {
	t.Parallel()
	mock := &mockS3{}
	s := NewS3WithClient(mock, S3Config{Bucket: "b", Region: "r"})
	if _, err := s.Put(context.Background(), "k", "", strings.NewReader("")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if mock.putType != "application/octet-stream" {
		t.Errorf("content type = %q, want octet-stream default", mock.putType)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	mock := &mockS3{}
	s := NewS3WithClient(mock, S3Config{Bucket: "b", Region: "r"})
	if err := s.Delete(context.Background(), "/tasks/123/a.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !mock.deleteCalled || mock.deleteKey != "tasks/123/a.png" {
		t.Errorf("DeleteObject key = %q", mock.deleteKey)
	}
}

func TestURLWithEndpointBase(t *testing.T) {
	t.Parallel()
	s := NewS3WithClient(&mockS3{}, S3Config{
		Bucket:   "attachments",
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
	})
	want := "http://localhost:9000/attachments/tasks/1/a.png"
	if got := s.URL("tasks/1/a.png"); got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestURLWithExplicitBase(t *testing.T) {
	t.Parallel()
	s := NewS3WithClient(&mockS3{}, S3Config{
		Bucket:  "attachments",
		Region:  "us-east-1",
		BaseURL: "https://cdn.example.com/",
	})
	if got := s.URL("a.png"); got != "https://cdn.example.com/a.png" {
		t.Errorf("URL = %q", got)
	}
}
