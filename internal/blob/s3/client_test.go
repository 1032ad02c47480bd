package s3blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name is required")
}

func TestNewDefaultsRegion(t *testing.T) {
	c, err := New(context.Background(), ClientConfig{
		Endpoint:       "localhost:9000",
		Bucket:         "engine-archive",
		ForcePathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "engine-archive", c.Bucket())
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"http://localhost:9000", false, "http://localhost:9000"},
		{"https://r2.example.com", false, "https://r2.example.com"},
		{"localhost:9000", false, "http://localhost:9000"},
		{"minio.internal:9000", true, "https://minio.internal:9000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normaliseEndpoint(tt.endpoint, tt.useSSL), tt.endpoint)
	}
}
