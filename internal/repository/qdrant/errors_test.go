package qdrant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{name: "unavailable", err: status.Error(codes.Unavailable, "connection refused"), unavailable: true},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "slow"), unavailable: true},
		{name: "unknown", err: status.Error(codes.Unknown, "storage error"), unavailable: true},
		{name: "internal", err: status.Error(codes.Internal, "panic"), unavailable: true},
		{name: "wrapped internal", err: fmt.Errorf("scroll: %w", status.Error(codes.Internal, "panic")), unavailable: true},
		{name: "context deadline", err: context.DeadlineExceeded, unavailable: true},
		{name: "not found", err: status.Error(codes.NotFound, "no collection"), unavailable: false},
		{name: "invalid argument", err: status.Error(codes.InvalidArgument, "bad id"), unavailable: false},
		{name: "plain", err: errors.New("decode failed"), unavailable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mapErr(tt.err)
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.unavailable, errors.Is(got, e.ErrStoreUnavailable))
		})
	}

	assert.NoError(t, mapErr(nil))
}

func TestIsGeneration(t *testing.T) {
	t.Parallel()

	repo := &CatalogRepo{cfg: &cfg.QdrantCfg{CollectionName: "catalog"}}

	assert.True(t, repo.isGeneration("catalog_6f1c8a52-7d1e-4b1a-9c3e-2f4b5a6c7d8e"))
	assert.False(t, repo.isGeneration("catalog"))
	assert.False(t, repo.isGeneration("catalog_archive"))
	assert.False(t, repo.isGeneration("catalog_v2_6f1c8a52-7d1e-4b1a-9c3e-2f4b5a6c7d8e"))
	assert.False(t, repo.isGeneration("other_6f1c8a52-7d1e-4b1a-9c3e-2f4b5a6c7d8e"))
}
