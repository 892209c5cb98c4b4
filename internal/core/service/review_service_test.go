package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostReview_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 1)

	require.NoError(t, f.shop.PostReview(ctx, user.Username, user.Password, id, 4, "solid"))

	details, err := f.shop.GetProductAndReviews(ctx, id)
	require.NoError(t, err)
	require.Len(t, details.Reviews, 1)
	assert.Equal(t, "alice", details.Reviews[0].Username)
	assert.Equal(t, 4, details.Reviews[0].Rating)
	assert.Equal(t, "solid", details.Reviews[0].Text)
	assert.False(t, details.Reviews[0].Date.IsZero())
}

func TestPostReview_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 1)

	assert.ErrorIs(t, f.shop.PostReview(ctx, user.Username, "wrong", id, 4, "x"), ErrAuthorizationFailed)
	assert.ErrorIs(t, f.shop.PostReview(ctx, user.Username, user.Password, id, 0, "x"), ErrInvalidArgument)
	assert.ErrorIs(t, f.shop.PostReview(ctx, user.Username, user.Password, id, 6, "x"), ErrInvalidArgument)
	assert.ErrorIs(t, f.shop.PostReview(ctx, user.Username, user.Password, 999, 3, "x"), ErrProductNotFound)

	require.NoError(t, f.shop.PostReview(ctx, user.Username, user.Password, id, 3, "first"))
	err := f.shop.PostReview(ctx, user.Username, user.Password, id, 5, "second")
	assert.ErrorIs(t, err, ErrReviewExists)
	assert.True(t, IsRejection(err))

	reviews, err := f.store.ListReviewsByProduct(ctx, id)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "first", reviews[0].Text)
}

func TestPostReview_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 1)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			err := f.shop.PostReview(context.Background(), user.Username, user.Password, id, rating, "race")
			if err == nil {
				successCount.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrReviewExists)
		}(i%5 + 1)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
}

func TestGetAverageRating_NoReviews(t *testing.T) {
	f := newFixture(t)
	f.givenUser(t, "quiet")

	avg, err := f.shop.GetAverageRating(context.Background(), "quiet")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}

func TestGetAverageRating_Mean(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.givenUser(t, "critic")

	for _, rating := range []int{3, 4, 5} {
		id := f.givenProduct(t, 1)
		require.NoError(t, f.shop.PostReview(ctx, user.Username, user.Password, id, rating, "r"))
	}

	avg, err := f.shop.GetAverageRating(ctx, "critic")
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
}
