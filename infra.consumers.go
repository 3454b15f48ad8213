package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// MirrorStorage is the write side of a storage receiving replicated changes.
type MirrorStorage interface {
	Put(ctx context.Context, ebook Ebook) error
	Remove(ctx context.Context, id string) (Ebook, error)
}

type boltDBConsumer struct {
	logger *zap.Logger
	queue  Queuer
	mirror MirrorStorage
}

func NewBoltDBConsumer(logger *zap.Logger, q Queuer, mirror MirrorStorage) Consumer {
	return &boltDBConsumer{logger, q, mirror}
}

// Consume applies each popped change to the mirror until ctx is done.
func (bc *boltDBConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, ebook, err := bc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			bc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			bc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		switch qid {
		case CreateQueue, UpdateQueue:
			if err = bc.mirror.Put(ctx, ebook); err != nil {
				bc.logger.Error("consumer: failed to save", zap.String("qid", qid), zap.Any("ebook", ebook), zap.Error(err))
			}
		case DeleteQueue:
			if _, err = bc.mirror.Remove(ctx, ebook.ID); err != nil && !errors.Is(err, ErrEbookNotFound) {
				bc.logger.Error("consumer: failed to delete", zap.String("ebook.id", ebook.ID), zap.Error(err))
			}
		default:
			bc.logger.Warn("consumer: received ebook on unknown queue id", zap.String("qid", qid), zap.Any("ebook", ebook))
		}
	}
}
