package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "spacetraders.autopilot.v1.AutomationService"

const (
	methodStart  = "/" + serviceName + "/StartAutomation"
	methodStop   = "/" + serviceName + "/StopAutomation"
	methodPause  = "/" + serviceName + "/PauseAutomation"
	methodResume = "/" + serviceName + "/ResumeAutomation"
	methodGet    = "/" + serviceName + "/GetAutomation"
	methodList   = "/" + serviceName + "/ListAutomations"
	methodSync   = "/" + serviceName + "/SyncCatalog"
)

// AutomationServiceServer is the daemon side of the control API. Calls that
// address a single ship take the ship symbol as a wrapperspb.StringValue.
type AutomationServiceServer interface {
	StartAutomation(context.Context, *StartAutomationRequest) (*AutomationState, error)
	StopAutomation(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	PauseAutomation(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ResumeAutomation(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	GetAutomation(context.Context, *wrapperspb.StringValue) (*AutomationDetail, error)
	ListAutomations(context.Context, *ListAutomationsRequest) (*ListAutomationsResponse, error)
	SyncCatalog(context.Context, *SyncCatalogRequest) (*wrapperspb.Int32Value, error)
}

// RegisterAutomationServiceServer attaches srv to a gRPC server
func RegisterAutomationServiceServer(s grpc.ServiceRegistrar, srv AutomationServiceServer) {
	s.RegisterService(&automationServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodHandler
func unaryHandler[Req any, Resp any](fullMethod string, call func(AutomationServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AutomationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AutomationServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var automationServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AutomationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartAutomation", Handler: unaryHandler(methodStart, AutomationServiceServer.StartAutomation)},
		{MethodName: "StopAutomation", Handler: unaryHandler(methodStop, AutomationServiceServer.StopAutomation)},
		{MethodName: "PauseAutomation", Handler: unaryHandler(methodPause, AutomationServiceServer.PauseAutomation)},
		{MethodName: "ResumeAutomation", Handler: unaryHandler(methodResume, AutomationServiceServer.ResumeAutomation)},
		{MethodName: "GetAutomation", Handler: unaryHandler(methodGet, AutomationServiceServer.GetAutomation)},
		{MethodName: "ListAutomations", Handler: unaryHandler(methodList, AutomationServiceServer.ListAutomations)},
		{MethodName: "SyncCatalog", Handler: unaryHandler(methodSync, AutomationServiceServer.SyncCatalog)},
	},
	Streams: []grpc.StreamDesc{},
}
