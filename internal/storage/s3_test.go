package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type mockS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newMockS3() *mockS3 {
	return &mockS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	m.objects[key] = data
	m.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := newMockS3()
	s := newS3Store(client, "meals")
	ctx := context.Background()

	ref, err := s.Save(ctx, "42", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(ref, "s3://meals/meal-photos/42/") {
		t.Errorf("Unexpected reference %q", ref)
	}
	stored := strings.TrimPrefix(ref, "s3://")
	if client.types[stored] != "image/png" {
		t.Errorf("Expected content type image/png, got %q", client.types[stored])
	}

	data, err := s.Load(ctx, ref)
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("Expected stored bytes, got %q, %v", data, err)
	}

	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := s.Load(ctx, "s3://other/key.jpg"); err == nil {
		t.Error("Expected an error for a foreign bucket")
	}
}
