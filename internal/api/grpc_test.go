package api

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/heysubinoy/kvweb/internal/logging"
	"github.com/heysubinoy/kvweb/internal/store"
	"github.com/heysubinoy/kvweb/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newTestClient(t *testing.T, s kv.Store) *KVClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	NewGRPCServer(NewService(s), logging.Discard()).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewKVClient(conn)
}

func TestGRPC_StoreGetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, store.NewMemStore())

	msg, err := c.Store(ctx, "a", "1")
	require.NoError(t, err)
	assert.Equal(t, "Data stored successfully: a = 1", msg)

	rec, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Record{Key: "a", Value: "1"}, rec)

	msg, err = c.Store(ctx, "a", "2")
	require.NoError(t, err)
	rec, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", rec.Value)

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)

	msg, err = c.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Key a deleted successfully", msg)

	_, err = c.Get(ctx, "a")
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "Key not found", status.Convert(err).Message())

	_, err = c.Delete(ctx, "a")
	assert.Equal(t, codes.NotFound, status.Code(err))

	keys, err = c.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGRPC_Validation(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, store.NewMemStore())

	_, err := c.Store(ctx, "a", "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "Key and value are required", status.Convert(err).Message())

	_, err = c.Store(ctx, "", "1")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Get(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Delete(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_BackendError(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, failingStore{err: errors.New("READONLY You can't write against a read only replica.")})

	_, err := c.Store(ctx, "a", "1")
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "READONLY You can't write against a read only replica.", status.Convert(err).Message())

	_, err = c.Keys(ctx)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestGRPC_Interceptor(t *testing.T) {
	var seen []string
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(
		func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			seen = append(seen, info.FullMethod)
			return handler(ctx, req)
		}))
	NewGRPCServer(NewService(store.NewMemStore()), logging.Discard()).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	c := NewKVClient(conn)
	ctx := context.Background()
	_, err = c.Store(ctx, "a", "1")
	require.NoError(t, err)
	_, err = c.Keys(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"/kvweb.KV/Store", "/kvweb.KV/Keys"}, seen)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err      error
		wantHTTP int
		wantGRPC codes.Code
	}{
		{&ValidationError{Msg: "x"}, 400, codes.InvalidArgument},
		{&NotFoundError{Key: "a"}, 404, codes.NotFound},
		{&BackendError{Err: errors.New("boom")}, 500, codes.Internal},
		{errors.Join(errors.New("context"), &NotFoundError{Key: "a"}), 404, codes.NotFound},
		{errors.New("unexpected"), 500, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.wantHTTP, StatusCode(tt.err))
			assert.Equal(t, tt.wantGRPC, GRPCCode(tt.err))
		})
	}

	berr := &BackendError{Err: context.DeadlineExceeded}
	assert.ErrorIs(t, berr, context.DeadlineExceeded)
	assert.Equal(t, context.DeadlineExceeded.Error(), berr.Error())
}
