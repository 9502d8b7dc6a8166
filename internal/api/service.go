package api

import (
	"context"
	"fmt"

	"github.com/heysubinoy/kvweb/pkg/kv"
)

// Record is a single key-value pair.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Service validates input and translates it into store operations. It is
// shared by the HTTP and gRPC front-ends; every error it returns is one of
// ValidationError, NotFoundError or BackendError.
type Service struct {
	store kv.Store
}

func NewService(store kv.Store) *Service {
	return &Service{store: store}
}

// Store writes the record, overwriting any previous value. Empty strings
// are rejected the same way as missing fields.
func (s *Service) Store(ctx context.Context, key, value string) (string, error) {
	if key == "" || value == "" {
		return "", &ValidationError{Msg: "Key and value are required"}
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		return "", &BackendError{Err: err}
	}
	return fmt.Sprintf("Data stored successfully: %s = %s", key, value), nil
}

func (s *Service) Get(ctx context.Context, key string) (Record, error) {
	if key == "" {
		return Record{}, &ValidationError{Msg: "Key is required"}
	}
	value, found, err := s.store.Get(ctx, key)
	if err != nil {
		return Record{}, &BackendError{Err: err}
	}
	if !found {
		return Record{}, &NotFoundError{Key: key}
	}
	return Record{Key: key, Value: value}, nil
}

// Keys lists every key in no particular order. The result is never nil.
func (s *Service) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *Service) Delete(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", &ValidationError{Msg: "Key is required"}
	}
	existed, err := s.store.Delete(ctx, key)
	if err != nil {
		return "", &BackendError{Err: err}
	}
	if !existed {
		return "", &NotFoundError{Key: key}
	}
	return fmt.Sprintf("Key %s deleted successfully", key), nil
}
