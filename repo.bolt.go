package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ EbookStorage = (*boltEbookStorage)(nil) // ensure boltEbookStorage implements EbookStorage.

type boltEbookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
	ids    UIDHandler
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.BoltDB.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %v", err)
	}
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltEbookStorage provides an instance of bolt-based ebook storage.
func NewBoltEbookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB, ids UIDHandler) *boltEbookStorage {
	return &boltEbookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
		ids:    ids,
	}
}

// Close shuts down the bolt-based ebook storage.
func (bs *boltEbookStorage) Close() error {
	return bs.client.Close()
}

func (bs *boltEbookStorage) bucket(tx *bolt.Tx) *bolt.Bucket {
	return tx.Bucket([]byte(bs.config.BucketName))
}

// GetAll retrieves a list of all ebooks stored in the bolt database.
func (bs *boltEbookStorage) GetAll(_ context.Context) ([]Ebook, error) {
	ebooks := []Ebook{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		return bs.bucket(tx).ForEach(func(_, v []byte) error {
			var ebook Ebook
			if err := json.Unmarshal(v, &ebook); err != nil {
				return err
			}
			ebooks = append(ebooks, ebook)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: failed to list ebooks: %w", err)
	}
	return ebooks, nil
}

// GetOne retrieves an ebook record based on its ID from boltdb store.
func (bs *boltEbookStorage) GetOne(_ context.Context, id string) (Ebook, error) {
	var ebook Ebook
	err := bs.client.View(func(tx *bolt.Tx) error {
		result := bs.bucket(tx).Get([]byte(id))
		if result == nil {
			return ErrEbookNotFound
		}
		return json.Unmarshal(result, &ebook)
	})
	if err == ErrEbookNotFound {
		return Ebook{}, err
	}
	if err != nil {
		return Ebook{}, fmt.Errorf("bolt: failed to get ebook: %w", err)
	}
	return ebook, nil
}

// Add inserts a new ebook record under a generated ID. The lookup
// for collision and the insertion share the same transaction.
func (bs *boltEbookStorage) Add(_ context.Context, ebook Ebook) (Ebook, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		ebook.ID = bs.ids.Generate(EbookIDPrefix)
		for b.Get([]byte(ebook.ID)) != nil {
			bs.logger.Warn("storage: generated ebook id already in use", zap.String("ebook.id", ebook.ID))
			ebook.ID = bs.ids.Generate(EbookIDPrefix)
		}
		value, err := json.Marshal(ebook)
		if err != nil {
			return err
		}
		return b.Put([]byte(ebook.ID), value)
	})
	if err != nil {
		return Ebook{}, fmt.Errorf("bolt: failed to add ebook: %w", err)
	}
	return ebook, nil
}

// Replace overwrites the ebook stored at id. It fails if nothing is stored there.
func (bs *boltEbookStorage) Replace(_ context.Context, id string, ebook Ebook) (Ebook, error) {
	ebook.ID = id
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get([]byte(id)) == nil {
			return ErrEbookNotFound
		}
		value, err := json.Marshal(ebook)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), value)
	})
	if err == ErrEbookNotFound {
		return Ebook{}, err
	}
	if err != nil {
		return Ebook{}, fmt.Errorf("bolt: failed to replace ebook: %w", err)
	}
	return ebook, nil
}

// Remove deletes an ebook record based on its ID and returns it.
func (bs *boltEbookStorage) Remove(_ context.Context, id string) (Ebook, error) {
	var ebook Ebook
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		result := b.Get([]byte(id))
		if result == nil {
			return ErrEbookNotFound
		}
		if err := json.Unmarshal(result, &ebook); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
	if err == ErrEbookNotFound {
		return Ebook{}, err
	}
	if err != nil {
		return Ebook{}, fmt.Errorf("bolt: failed to remove ebook: %w", err)
	}
	return ebook, nil
}

// Put inserts or replaces the ebook at its own ID. It is used to
// mirror changes already accepted by the primary storage.
func (bs *boltEbookStorage) Put(_ context.Context, ebook Ebook) error {
	value, err := json.Marshal(ebook)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		return bs.bucket(tx).Put([]byte(ebook.ID), value)
	})
}
