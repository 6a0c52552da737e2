package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/model"
)

func TestUploadService_UploadImage(t *testing.T) {
	storage := client.NewMemoryStorage("https://media.test")
	svc := NewUploadService(storage, time.Hour)
	ctx := context.Background()

	resp, err := svc.UploadImage(ctx, testUser, model.ImageKindLogo, "image/png", strings.NewReader("png"), 3)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Key, "images/"+testUser+"/logo/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".png"))
	assert.Equal(t, int64(3), resp.Size)
	assert.Contains(t, resp.URL, resp.Key)

	data, contentType, err := storage.Download(ctx, resp.Key)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "image/png", contentType)

	assert.Equal(t, model.KindNotFound, model.KindOf(svc.DeleteImage(ctx, "intruder", resp.Key)))
	require.NoError(t, svc.DeleteImage(ctx, testUser, resp.Key))
	_, _, err = storage.Download(ctx, resp.Key)
	assert.ErrorIs(t, err, client.ErrObjectNotFound)
}

func TestUploadService_Rejects(t *testing.T) {
	svc := NewUploadService(client.NewMemoryStorage("https://media.test"), 0)

	_, err := svc.UploadImage(context.Background(), testUser, model.ImageKindProduct, "image/gif", strings.NewReader("gif"), 3)
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))

	_, err = svc.UploadImage(context.Background(), testUser, "banner", "image/png", strings.NewReader("png"), 3)
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
}
