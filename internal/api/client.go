package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// KVClient is a client for the kvweb.KV gRPC service. Errors are gRPC
// status errors; use status.Code to tell NotFound from the rest.
type KVClient struct {
	cc grpc.ClientConnInterface
}

func NewKVClient(cc grpc.ClientConnInterface) *KVClient {
	return &KVClient{cc: cc}
}

// Store returns the server's confirmation message.
func (c *KVClient) Store(ctx context.Context, key, value string, opts ...grpc.CallOption) (string, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"key":   structpb.NewStringValue(key),
		"value": structpb.NewStringValue(value),
	}}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, storeMethod, in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *KVClient) Get(ctx context.Context, key string, opts ...grpc.CallOption) (Record, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getMethod, wrapperspb.String(key), out, opts...); err != nil {
		return Record{}, err
	}
	fields := out.GetFields()
	return Record{
		Key:   fields["key"].GetStringValue(),
		Value: fields["value"].GetStringValue(),
	}, nil
}

func (c *KVClient) Keys(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, keysMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		keys = append(keys, v.GetStringValue())
	}
	return keys, nil
}

func (c *KVClient) Delete(ctx context.Context, key string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, deleteMethod, wrapperspb.String(key), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
