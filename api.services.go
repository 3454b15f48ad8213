package main

import (
	"context"

	"go.uber.org/zap"
)

type EbookServiceProvider interface {
	GetAll(ctx context.Context) ([]Ebook, error)
	GetOne(ctx context.Context, id string) (Ebook, error)
	Add(ctx context.Context, ebook Ebook) (Ebook, error)
	Update(ctx context.Context, id string, ebook Ebook) (Ebook, error)
	Delete(ctx context.Context, id string) (Ebook, error)
}

type EbookService struct {
	logger  *zap.Logger
	storage EbookStorage
	queue   Queuer
}

func NewEbookService(logger *zap.Logger, storage EbookStorage, queue Queuer) EbookServiceProvider {
	if queue == nil {
		queue = noopQueue{}
	}
	return &EbookService{
		logger:  logger,
		storage: storage,
		queue:   queue,
	}
}

func (es *EbookService) GetAll(ctx context.Context) ([]Ebook, error) {
	return es.storage.GetAll(ctx)
}

func (es *EbookService) GetOne(ctx context.Context, id string) (Ebook, error) {
	return es.storage.GetOne(ctx, id)
}

func (es *EbookService) Add(ctx context.Context, ebook Ebook) (Ebook, error) {
	ebook, err := es.storage.Add(ctx, ebook)
	if err != nil {
		return ebook, err
	}
	es.publish(ctx, CreateQueue, ebook)
	return ebook, nil
}

func (es *EbookService) Update(ctx context.Context, id string, ebook Ebook) (Ebook, error) {
	ebook, err := es.storage.Replace(ctx, id, ebook)
	if err != nil {
		return ebook, err
	}
	es.publish(ctx, UpdateQueue, ebook)
	return ebook, nil
}

func (es *EbookService) Delete(ctx context.Context, id string) (Ebook, error) {
	ebook, err := es.storage.Remove(ctx, id)
	if err != nil {
		return ebook, err
	}
	es.publish(ctx, DeleteQueue, Ebook{ID: id})
	return ebook, nil
}

// publish forwards an applied change to the mirror queue. Failures
// are only logged since the primary storage already holds the change.
func (es *EbookService) publish(ctx context.Context, qid string, ebook Ebook) {
	if err := es.queue.Push(ctx, qid, ebook); err != nil {
		es.logger.Error("service: failed to push ebook to queue", zap.String("qid", qid), zap.String("ebook.id", ebook.ID), zap.Error(err))
		return
	}
	es.logger.Debug("service: change applied", zap.String("qid", qid), zap.String("ebook.id", ebook.ID))
}
