package minio

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/blobstore/blobstoretest"
)

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}), blobstore.ErrNotFound)
	assert.ErrorIs(t, translate(minio.ErrorResponse{Code: "PreconditionFailed", StatusCode: http.StatusPreconditionFailed}), blobstore.ErrAlreadyExists)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestStore_Key(t *testing.T) {
	assert.Equal(t, "t.lance/data/a", NewStore(nil, "b", "").key("t.lance/data/a"))
	assert.Equal(t, "db/t.lance/data/a", NewStore(nil, "b", "/db/").key("t.lance/data/a"))
}

func TestIntegration_MinioStore(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	bucket := os.Getenv("MINIO_BUCKET")
	if endpoint == "" || bucket == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT or MINIO_BUCKET not set")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: os.Getenv("MINIO_SECURE") == "true",
	})
	require.NoError(t, err)

	blobstoretest.Run(t, func(t *testing.T) blobstore.Store {
		return NewStore(client, bucket, fmt.Sprintf("test-vectable-%d", time.Now().UnixNano()))
	})
}
