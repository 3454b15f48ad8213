package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	CreateQueue = "ebooks.creation"
	UpdateQueue = "ebooks.updating"
	DeleteQueue = "ebooks.deletion"
)

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a queue of ebook changes.
type Queuer interface {
	Push(ctx context.Context, qid string, ebook Ebook) error
	Pop(ctx context.Context, qids ...string) (string, Ebook, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// Push enqueues an ebook onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, ebook Ebook) error {
	ebookBytes, err := json.Marshal(ebook)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, ebookBytes).Err()
}

// Pop blocks until an ebook is available on one of the queue ids
// and returns it along with the queue it was taken from.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Ebook, error) {
	var ebook Ebook
	var qid string
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return qid, ebook, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &ebook); err != nil {
		return qid, ebook, err
	}
	qid = infos[0]
	return qid, ebook, nil
}

// noopQueue drops every change. It stands in when the mirror is disabled.
type noopQueue struct{}

func (noopQueue) Push(context.Context, string, Ebook) error { return nil }

func (noopQueue) Pop(ctx context.Context, _ ...string) (string, Ebook, error) {
	<-ctx.Done()
	return "", Ebook{}, ctx.Err()
}
