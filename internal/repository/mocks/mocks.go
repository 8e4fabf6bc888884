package mocks

import (
	"context"

	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/stretchr/testify/mock"
)

// BlobRepository is a mock for blobstore.Backend.
type BlobRepository struct {
	mock.Mock
}

func (m *BlobRepository) Put(ctx context.Context, id string, blob blobstore.Blob) error {
	args := m.Called(ctx, id, blob)
	return args.Error(0)
}

func (m *BlobRepository) Get(ctx context.Context, id string) (*blobstore.Blob, error) {
	args := m.Called(ctx, id)
	if blob, ok := args.Get(0).(*blobstore.Blob); ok {
		return blob, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BlobRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *BlobRepository) List(ctx context.Context) ([]blobstore.Entry, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]blobstore.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SlotRepository is a mock for autosave.Slot.
type SlotRepository struct {
	mock.Mock
}

func (m *SlotRepository) Read(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *SlotRepository) Write(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}
