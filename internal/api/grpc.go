package api

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// KVServiceName is the fully-qualified gRPC service name.
const KVServiceName = "kvweb.KV"

const (
	storeMethod  = "/" + KVServiceName + "/Store"
	getMethod    = "/" + KVServiceName + "/Get"
	keysMethod   = "/" + KVServiceName + "/Keys"
	deleteMethod = "/" + KVServiceName + "/Delete"
)

// KVServer is the server API for the kvweb.KV service. Messages are
// protobuf well-known types:
//
//	Store(Struct{key, value}) -> StringValue(message)
//	Get(StringValue(key))     -> Struct{key, value}
//	Keys(Empty)               -> ListValue(keys)
//	Delete(StringValue(key))  -> StringValue(message)
type KVServer interface {
	Store(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Keys(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Delete(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// GRPCServer implements KVServer on top of a Service.
type GRPCServer struct {
	Service *Service
	Logger  log.FieldLogger
}

var _ KVServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC server with the given service.
func NewGRPCServer(svc *Service, logger log.FieldLogger) *GRPCServer {
	return &GRPCServer{
		Service: svc,
		Logger:  logger,
	}
}

// Register adds the kvweb.KV service to s.
func (s *GRPCServer) Register(srv *grpc.Server) {
	srv.RegisterService(&kvServiceDesc, s)
}

func (s *GRPCServer) Store(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	msg, err := s.Service.Store(ctx, fields["key"].GetStringValue(), fields["value"].GetStringValue())
	if err != nil {
		return nil, s.toStatus(storeMethod, err)
	}
	return wrapperspb.String(msg), nil
}

func (s *GRPCServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	rec, err := s.Service.Get(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(getMethod, err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"key":   structpb.NewStringValue(rec.Key),
		"value": structpb.NewStringValue(rec.Value),
	}}, nil
}

func (s *GRPCServer) Keys(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	keys, err := s.Service.Keys(ctx)
	if err != nil {
		return nil, s.toStatus(keysMethod, err)
	}
	values := make([]*structpb.Value, len(keys))
	for i, k := range keys {
		values[i] = structpb.NewStringValue(k)
	}
	return &structpb.ListValue{Values: values}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	msg, err := s.Service.Delete(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(deleteMethod, err)
	}
	return wrapperspb.String(msg), nil
}

func (s *GRPCServer) toStatus(method string, err error) error {
	code := GRPCCode(err)
	logger := s.Logger.WithFields(log.Fields{
		"method": method,
		"code":   code.String(),
		"err":    err,
	})
	var berr *BackendError
	if errors.As(err, &berr) {
		logger.Error("Store operation failed")
	} else {
		logger.Debug("Request rejected")
	}
	return status.Error(code, err.Error())
}

// unaryHandler adapts a typed KVServer method to a grpc.MethodDesc handler.
func unaryHandler[Req proto.Message](method string, newReq func() Req, call func(KVServer, context.Context, Req) (proto.Message, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KVServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KVServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var kvServiceDesc = grpc.ServiceDesc{
	ServiceName: KVServiceName,
	HandlerType: (*KVServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Store",
			Handler: unaryHandler(storeMethod, func() *structpb.Struct { return new(structpb.Struct) },
				func(s KVServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
					return s.Store(ctx, in)
				}),
		},
		{
			MethodName: "Get",
			Handler: unaryHandler(getMethod, func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				func(s KVServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
					return s.Get(ctx, in)
				}),
		},
		{
			MethodName: "Keys",
			Handler: unaryHandler(keysMethod, func() *emptypb.Empty { return new(emptypb.Empty) },
				func(s KVServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
					return s.Keys(ctx, in)
				}),
		},
		{
			MethodName: "Delete",
			Handler: unaryHandler(deleteMethod, func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				func(s KVServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
					return s.Delete(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kvweb/kv.proto",
}
