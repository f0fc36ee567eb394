package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "deskchat.v1.Control"

const (
	methodGetState    = "/" + ServiceName + "/GetState"
	methodSendText    = "/" + ServiceName + "/SendText"
	methodRefresh     = "/" + ServiceName + "/Refresh"
	methodWatchEvents = "/" + ServiceName + "/WatchEvents"
)

// controlServer is the server API of the control service. Messages are
// protobuf well-known types, so no generated code is needed.
type controlServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SendText(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Refresh(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	WatchEvents(*emptypb.Empty, grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*controlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: getStateHandler},
		{MethodName: "SendText", Handler: sendTextHandler},
		{MethodName: "Refresh", Handler: refreshHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchEvents", Handler: watchEventsHandler, ServerStreams: true},
	},
	Metadata: "deskchat/v1/control.proto",
}

func getStateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).GetState(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func sendTextHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlServer).SendText(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSendText}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).SendText(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func refreshHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlServer).Refresh(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRefresh}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).Refresh(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(controlServer).WatchEvents(in, stream)
}
