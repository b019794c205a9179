package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/model"
)

func TestExplanationCacheRoundTrip(t *testing.T) {
	_, mr, rdb := newCounterRepo(t)
	repo := NewExplanationCacheRepository(rdb)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, "explanation:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	doc := &model.ExplanationDocument{Summary: "The power rule gives 2x."}
	require.NoError(t, repo.Set(ctx, "explanation:abc", doc, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("explanation:abc"))

	got, ok, err := repo.Get(ctx, "explanation:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc.Summary, got.Summary)
}

func TestExplanationCacheUndecodableEntryIsMiss(t *testing.T) {
	_, mr, rdb := newCounterRepo(t)
	repo := NewExplanationCacheRepository(rdb)
	require.NoError(t, mr.Set("explanation:abc", "not-json{"))

	got, ok, err := repo.Get(context.Background(), "explanation:abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("explanation:abc"))
}
