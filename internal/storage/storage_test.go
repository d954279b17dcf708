package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func TestFolderPath(t *testing.T) {
	assert.Equal(t, "10/20", FolderPath("10", "20"))
	assert.Equal(t, "10/general", FolderPath("10", ""))
	assert.Equal(t, "10/general", FolderPath("10", "0"))
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("10/20", "Brand Guide FINAL.PDF", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(key, "10/20/"))
	assert.True(t, strings.HasSuffix(key, "-brand-guide-final.pdf"))

	other := ObjectKey("10/20", "Brand Guide FINAL.PDF", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, key, other)
}

func TestS3Upload(t *testing.T) {
	client := &mockS3{}
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "files" &&
			strings.HasPrefix(aws.ToString(in.Key), "1/general/") &&
			aws.ToString(in.ContentType) == "image/png"
	})).Return(&s3.PutObjectOutput{}, nil)

	store := newS3Storage(client, "files", "https://cdn.example.com/", zap.NewNop())
	obj, err := store.Upload(context.Background(), UploadRequest{
		Folder:      FolderPath("1", ""),
		Filename:    "logo.png",
		ContentType: "image/png",
		Data:        []byte("png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+obj.RemoteID, obj.URL)
	assert.EqualValues(t, 3, obj.Size)
	client.AssertExpectations(t)
}

func TestS3DeleteMapsMissingKey(t *testing.T) {
	client := &mockS3{}
	client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})

	store := newS3Storage(client, "files", "", zap.NewNop())
	err := store.Delete(context.Background(), "1/general/x.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.ErrorIs(t, store.Delete(context.Background(), " "), ErrEmptyRemoteID)
}

func TestS3DeleteWrapsFailure(t *testing.T) {
	client := &mockS3{}
	client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	store := newS3Storage(client, "files", "", zap.NewNop())
	assert.ErrorContains(t, store.Delete(context.Background(), "k"), "access denied")
}

func TestMemoryStorageRoundTrip(t *testing.T) {
	store := NewMemoryStorage()
	obj, err := store.Upload(context.Background(), UploadRequest{Folder: "1/2", Filename: "a.txt", Data: []byte("hello")})
	require.NoError(t, err)

	data, ok := store.Get(obj.RemoteID)
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(context.Background(), obj.RemoteID))
	assert.ErrorIs(t, store.Delete(context.Background(), obj.RemoteID), ErrObjectNotFound)
	assert.Zero(t, store.Len())
}
