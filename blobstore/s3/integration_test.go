package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/blobstore/blobstoretest"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg)

	blobstoretest.Run(t, func(t *testing.T) blobstore.Store {
		store := NewStore(client, bucket, fmt.Sprintf("test-vectable-%d", time.Now().UnixNano()))
		t.Cleanup(func() {
			infos, err := store.List(context.Background(), "")
			if err != nil {
				return
			}
			for _, info := range infos {
				_ = store.Delete(context.Background(), info.Name)
			}
		})
		return store
	})
}
