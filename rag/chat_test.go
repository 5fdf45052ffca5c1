package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/de7fp/restaurant-rag/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() []models.Restaurant {
	return []models.Restaurant{
		{PlaceID: 101, Name: "상수국밥", Category: "한식", CurrentWaitingTeam: 2, Rating: 4.5},
		{PlaceID: 102, Name: "합정스시", Category: "일식", Rating: 4.2},
		{PlaceID: 103, Name: "망원분식", Category: "분식", CurrentWaitingTeam: 5, Rating: 3.9},
		{PlaceID: 104, Name: "연남카페", Category: "카페", Rating: 4.8},
		{PlaceID: 105, Name: "서교피자", Category: "양식", Rating: 4.1},
	}
}

func newTestChat(model *fakeModel, history *fakeHistory, retriever *fakeRetriever, opts Options) (*Chat, *fakeEmbedder) {
	emb := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	var h HistoryRecorder
	if history != nil {
		h = history
	}
	return NewChat(emb, retriever, model, h, opts), emb
}

func TestAnswerStructured(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"restaurant_ID\": [101], \"answer\": \"상수국밥은 2팀 대기 중이에요\"}\n```"}
	history := &fakeHistory{}
	retriever := &fakeRetriever{restaurants: seeded()}
	chat, emb := newTestChat(model, history, retriever, Options{})

	out, err := chat.Answer(context.Background(), "마포 국밥 맛집")
	require.NoError(t, err)

	assert.False(t, out.Fallback)
	assert.Equal(t, []int64{101}, out.Reply.RestaurantIDs)
	assert.Equal(t, "상수국밥은 2팀 대기 중이에요", out.Reply.Answer)

	assert.Equal(t, [][]string{{"마포 국밥 맛집"}}, emb.calls)
	assert.Equal(t, DefaultTopK, retriever.gotK)
	assert.Contains(t, model.prompt, "- ID: 101")
	assert.Contains(t, model.prompt, "- ID: 104")
	assert.NotContains(t, model.prompt, "- ID: 105")
	assert.Contains(t, model.prompt, "사용자 질문: 마포 국밥 맛집")

	require.Len(t, history.records, 1)
	assert.Equal(t, recordedChat{"마포 국밥 맛집", "상수국밥은 2팀 대기 중이에요", false}, history.records[0])
}

func TestAnswerFallback(t *testing.T) {
	model := &fakeModel{reply: "국밥이 맛있어요"}
	history := &fakeHistory{}
	chat, _ := newTestChat(model, history, &fakeRetriever{restaurants: seeded()}, Options{TopK: 2})

	out, err := chat.Answer(context.Background(), "추천")
	require.NoError(t, err)

	assert.True(t, out.Fallback)
	assert.Equal(t, []int64{101, 102}, out.Reply.RestaurantIDs)
	assert.Equal(t, "국밥이 맛있어요", out.Reply.Answer)
	require.Len(t, history.records, 1)
	assert.True(t, history.records[0].fallback)
}

func TestAnswerFallbackCapsIDsAtThree(t *testing.T) {
	model := &fakeModel{reply: "그냥 아무데나 가세요"}
	chat, _ := newTestChat(model, nil, &fakeRetriever{restaurants: seeded()}, Options{TopK: 5, FallbackIDs: 10})

	out, err := chat.Answer(context.Background(), "추천")
	require.NoError(t, err)

	assert.True(t, out.Fallback)
	assert.Equal(t, []int64{101, 102, 103}, out.Reply.RestaurantIDs)
}

func TestAnswerEmptyRetrievalUsesNoContext(t *testing.T) {
	model := &fakeModel{reply: `{"restaurant_ID": [], "answer": "관련 정보가 없어요"}`}
	chat, _ := newTestChat(model, nil, &fakeRetriever{}, Options{})

	out, err := chat.Answer(context.Background(), "아무거나")
	require.NoError(t, err)
	assert.Contains(t, model.prompt, "[참고 정보]\n"+NoContext+"\n\n")
	assert.Empty(t, out.Reply.RestaurantIDs)
}

func TestAnswerErrors(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		model := &fakeModel{}
		history := &fakeHistory{}
		chat, emb := newTestChat(model, history, &fakeRetriever{}, Options{})

		_, err := chat.Answer(context.Background(), "   ")

		var rerr *Error
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, KindInvalidRequest, rerr.Kind)
		assert.Equal(t, "메시지가 비어있습니다.", err.Error())
		assert.Empty(t, emb.calls)
		assert.Empty(t, history.records)
	})

	t.Run("embedding", func(t *testing.T) {
		model := &fakeModel{}
		history := &fakeHistory{}
		chat, emb := newTestChat(model, history, &fakeRetriever{}, Options{})
		emb.err = errBoom

		_, err := chat.Answer(context.Background(), "질문")

		var rerr *Error
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, KindEmbedding, rerr.Kind)
		assert.Equal(t, "임베딩 생성 실패: boom", err.Error())
		assert.ErrorIs(t, err, errBoom)
		assert.Empty(t, model.prompt)
		assert.Empty(t, history.records)
	})

	t.Run("retrieval", func(t *testing.T) {
		chat, _ := newTestChat(&fakeModel{}, nil, &fakeRetriever{err: errBoom}, Options{})

		_, err := chat.Answer(context.Background(), "질문")

		var rerr *Error
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, KindRetrieval, rerr.Kind)
	})

	t.Run("generation", func(t *testing.T) {
		history := &fakeHistory{}
		chat, _ := newTestChat(&fakeModel{err: errBoom}, history, &fakeRetriever{restaurants: seeded()}, Options{})

		_, err := chat.Answer(context.Background(), "질문")

		var rerr *Error
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, KindGeneration, rerr.Kind)
		assert.Equal(t, "LLM 생성 오류: boom", err.Error())
		assert.Empty(t, history.records)
	})

	t.Run("generation timeout", func(t *testing.T) {
		chat, _ := newTestChat(&fakeModel{block: true}, nil, &fakeRetriever{}, Options{Timeout: 10 * time.Millisecond})

		_, err := chat.Answer(context.Background(), "질문")

		var rerr *Error
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, KindGeneration, rerr.Kind)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestAnswerIgnoresHistoryFailure(t *testing.T) {
	model := &fakeModel{reply: `{"restaurant_ID": [101], "answer": "ok"}`}
	chat, _ := newTestChat(model, &fakeHistory{err: errBoom}, &fakeRetriever{restaurants: seeded()}, Options{})

	out, err := chat.Answer(context.Background(), "질문")
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Reply.Answer)
}
