package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	msg, err := decode(`{"type":"report.submitted","subject":"r1","published_at":"2024-03-09T01:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, TypeReportSubmitted, msg.Type)
	assert.Equal(t, "r1", msg.Subject)
	assert.Equal(t, 30*time.Minute, msg.Age(time.Date(2024, 3, 9, 1, 30, 0, 0, time.UTC)))

	for _, bad := range []string{"report.submitted|r1", `{"subject":"r1"}`, ""} {
		_, err := decode(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(2)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeReportSubmitted, Subject: "r1"}))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, "r1", msg.Subject)
		assert.False(t, msg.PublishedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := q.Publish(ctx, Message{Type: TypeReportSubmitted})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedisQueue(client, "", nil)
	q.block = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	published := time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeReportSubmitted, Subject: "r1", PublishedAt: published}))
	require.NoError(t, q.Publish(ctx, Message{Type: TypeReportSubmitted, Subject: "r2"}))
	_, err := mr.Lpush(DefaultKey, "garbage")
	require.NoError(t, err)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, depth)

	stored, err := mr.List(DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"report.submitted","subject":"r1","published_at":"2024-03-09T01:00:00Z"}`, stored[2])

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	var got []string
	for len(got) < 2 {
		select {
		case msg := <-ch:
			got = append(got, msg.Subject)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}
	assert.Equal(t, []string{"r1", "r2"}, got)
}
