package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mdd.v1.MDD"

// API is the set of unary methods served under ServiceName.
// Every method takes and returns a google.protobuf.Struct.
type API interface {
	Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Me(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateMe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Subscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Unsubscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListTopics(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Feed(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreatePost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListComments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreateComment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// Method returns the full method name, e.g. "/mdd.v1.MDD/Login".
func Method(name string) string { return "/" + ServiceName + "/" + name }

var publicMethods = map[string]bool{
	Method("Register"): true,
	Method("Login"):    true,
}

type apiMethod func(API, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, m apiMethod) grpc.MethodDesc {
	full := Method(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			api := srv.(API)
			if interceptor == nil {
				return m(api, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return m(api, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes the MDD service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", API.Register),
		unary("Login", API.Login),
		unary("Me", API.Me),
		unary("UpdateMe", API.UpdateMe),
		unary("Subscribe", API.Subscribe),
		unary("Unsubscribe", API.Unsubscribe),
		unary("ListTopics", API.ListTopics),
		unary("Feed", API.Feed),
		unary("CreatePost", API.CreatePost),
		unary("ListComments", API.ListComments),
		unary("CreateComment", API.CreateComment),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterAPI registers api on gs.
func RegisterAPI(gs grpc.ServiceRegistrar, api API) {
	gs.RegisterService(&ServiceDesc, api)
}
