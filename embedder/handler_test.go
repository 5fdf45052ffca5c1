package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/de7fp/restaurant-rag/models"
	"github.com/de7fp/restaurant-rag/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err   error
	texts []string
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	return [][]float32{{0.5, 0.5}}, nil
}

type updatedVector struct {
	description string
	vector      []float32
}

type fakeStore struct {
	restaurants map[uint64]*models.Restaurant
	loadErr     error
	updated     map[uint64]updatedVector
}

func (f *fakeStore) GetRestaurantByID(_ context.Context, id uint64) (*models.Restaurant, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	r, ok := f.restaurants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeStore) UpdateRestaurantVector(_ context.Context, id uint64, description string, vector []float32) error {
	if f.updated == nil {
		f.updated = map[uint64]updatedVector{}
	}
	f.updated[id] = updatedVector{description, vector}
	return nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{restaurants: map[uint64]*models.Restaurant{
		7: {ID: 7, PlaceID: 1001, Name: "상수국밥", Category: "한식", Address: "서울 마포구 독막로 1", CurrentWaitingTeam: 2, Rating: 4.5},
	}}
}

func TestHandleRestaurantMessageEmbedsDescription(t *testing.T) {
	st := newFakeStore()
	emb := &fakeEmbedder{}
	h := NewHandler(emb, st)

	err := h.HandleRestaurantMessage(context.Background(), []byte(`{"table":"restaurants","kind":"insert","id":7}`))
	require.NoError(t, err)

	require.Contains(t, st.updated, uint64(7))
	got := st.updated[7]
	assert.Equal(t, []float32{0.5, 0.5}, got.vector)
	assert.Contains(t, got.description, "맛집 이름: 상수국밥")
	assert.Contains(t, got.description, "예상 대기시간: 20분")
	assert.Equal(t, []string{got.description}, emb.texts)
}

func TestHandleRestaurantMessageAcksMissingAndMalformed(t *testing.T) {
	st := newFakeStore()
	h := NewHandler(&fakeEmbedder{}, st)

	assert.NoError(t, h.HandleRestaurantMessage(context.Background(), []byte(`{"id":99}`)))
	assert.NoError(t, h.HandleRestaurantMessage(context.Background(), []byte(`garbage`)))
	assert.Empty(t, st.updated)
}

func TestHandleRestaurantMessageRetriesOnFailure(t *testing.T) {
	st := newFakeStore()
	h := NewHandler(&fakeEmbedder{err: errors.New("quota")}, st)
	assert.ErrorContains(t, h.HandleRestaurantMessage(context.Background(), []byte(`{"id":7}`)), "quota")
	assert.Empty(t, st.updated)

	st.loadErr = errors.New("connection reset")
	assert.Error(t, NewHandler(&fakeEmbedder{}, st).HandleRestaurantMessage(context.Background(), []byte(`{"id":7}`)))
}

type fakeJob struct {
	data      []byte
	acked     atomic.Bool
	naked     atomic.Bool
	onSettled func()
}

func (j *fakeJob) Data() []byte { return j.data }
func (j *fakeJob) Ack() error   { j.acked.Store(true); j.onSettled(); return nil }
func (j *fakeJob) Nak() error   { j.naked.Store(true); j.onSettled(); return nil }

func TestWorkerPoolAcksAndNaks(t *testing.T) {
	var wg sync.WaitGroup
	pool := NewWorkerPool(context.Background(), 2, 4, func(_ context.Context, msg []byte) error {
		if string(msg) == "bad" {
			return errors.New("failed")
		}
		return nil
	})

	good := &fakeJob{data: []byte("good"), onSettled: wg.Done}
	bad := &fakeJob{data: []byte("bad"), onSettled: wg.Done}
	wg.Add(2)
	require.True(t, pool.Submit(context.Background(), good))
	require.True(t, pool.Submit(context.Background(), bad))

	settled := make(chan struct{})
	go func() {
		wg.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs were not processed")
	}

	assert.True(t, good.acked.Load())
	assert.False(t, good.naked.Load())
	assert.True(t, bad.naked.Load())
	assert.False(t, bad.acked.Load())

	pool.Stop()
	pool.Wait()
}

func TestWorkerPoolSubmitGivesUpWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(context.Background(), 1, 1, func(context.Context, []byte) error {
		started <- struct{}{}
		<-release
		return nil
	})

	noop := func() {}
	require.True(t, pool.Submit(context.Background(), &fakeJob{onSettled: noop}))
	<-started
	require.True(t, pool.Submit(context.Background(), &fakeJob{onSettled: noop}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, pool.Submit(ctx, &fakeJob{onSettled: noop}))

	close(release)
	pool.Stop()
	pool.Wait()
}
