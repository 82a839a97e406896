package execrpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cellexec.CellExecutor"

// CellExecutorServer is the server-side contract. internal/server implements
// it over the session manager.
type CellExecutorServer interface {
	StartSession(context.Context, *StartSessionRequest) (*StartSessionResponse, error)
	ExecuteCell(context.Context, *ExecuteCellRequest) (*ExecuteCellResponse, error)
	EndSession(context.Context, *EndSessionRequest) (*EndSessionResponse, error)
	GetSessionState(context.Context, *GetSessionStateRequest) (*GetSessionStateResponse, error)
	UpdateWidgetValue(context.Context, *UpdateWidgetValueRequest) (*UpdateWidgetValueResponse, error)
}

// RegisterCellExecutorServer wires srv into s under ServiceName.
func RegisterCellExecutorServer(s grpc.ServiceRegistrar, srv CellExecutorServer) {
	s.RegisterService(&CellExecutorServiceDesc, srv)
}

func startSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellExecutorServer).StartSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/StartSession"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellExecutorServer).StartSession(ctx, req.(*StartSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func executeCellHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecuteCellRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellExecutorServer).ExecuteCell(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ExecuteCell"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellExecutorServer).ExecuteCell(ctx, req.(*ExecuteCellRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func endSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(EndSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellExecutorServer).EndSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/EndSession"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellExecutorServer).EndSession(ctx, req.(*EndSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSessionStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSessionStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellExecutorServer).GetSessionState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetSessionState"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellExecutorServer).GetSessionState(ctx, req.(*GetSessionStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func updateWidgetValueHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateWidgetValueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CellExecutorServer).UpdateWidgetValue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/UpdateWidgetValue"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CellExecutorServer).UpdateWidgetValue(ctx, req.(*UpdateWidgetValueRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// CellExecutorServiceDesc describes the service for grpc.Server registration.
var CellExecutorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CellExecutorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartSession", Handler: startSessionHandler},
		{MethodName: "ExecuteCell", Handler: executeCellHandler},
		{MethodName: "EndSession", Handler: endSessionHandler},
		{MethodName: "GetSessionState", Handler: getSessionStateHandler},
		{MethodName: "UpdateWidgetValue", Handler: updateWidgetValueHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/execrpc",
}

// CellExecutorClient is the client-side contract.
type CellExecutorClient interface {
	StartSession(ctx context.Context, in *StartSessionRequest, opts ...grpc.CallOption) (*StartSessionResponse, error)
	ExecuteCell(ctx context.Context, in *ExecuteCellRequest, opts ...grpc.CallOption) (*ExecuteCellResponse, error)
	EndSession(ctx context.Context, in *EndSessionRequest, opts ...grpc.CallOption) (*EndSessionResponse, error)
	GetSessionState(ctx context.Context, in *GetSessionStateRequest, opts ...grpc.CallOption) (*GetSessionStateResponse, error)
	UpdateWidgetValue(ctx context.Context, in *UpdateWidgetValueRequest, opts ...grpc.CallOption) (*UpdateWidgetValueResponse, error)
}

type cellExecutorClient struct {
	cc grpc.ClientConnInterface
}

// NewCellExecutorClient returns a client that frames calls with the JSON
// codec; callers need no extra dial or call options for that.
func NewCellExecutorClient(cc grpc.ClientConnInterface) CellExecutorClient {
	return &cellExecutorClient{cc: cc}
}

func (c *cellExecutorClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *cellExecutorClient) StartSession(ctx context.Context, in *StartSessionRequest, opts ...grpc.CallOption) (*StartSessionResponse, error) {
	out := new(StartSessionResponse)
	if err := c.invoke(ctx, "StartSession", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cellExecutorClient) ExecuteCell(ctx context.Context, in *ExecuteCellRequest, opts ...grpc.CallOption) (*ExecuteCellResponse, error) {
	out := new(ExecuteCellResponse)
	if err := c.invoke(ctx, "ExecuteCell", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cellExecutorClient) EndSession(ctx context.Context, in *EndSessionRequest, opts ...grpc.CallOption) (*EndSessionResponse, error) {
	out := new(EndSessionResponse)
	if err := c.invoke(ctx, "EndSession", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cellExecutorClient) GetSessionState(ctx context.Context, in *GetSessionStateRequest, opts ...grpc.CallOption) (*GetSessionStateResponse, error) {
	out := new(GetSessionStateResponse)
	if err := c.invoke(ctx, "GetSessionState", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cellExecutorClient) UpdateWidgetValue(ctx context.Context, in *UpdateWidgetValueRequest, opts ...grpc.CallOption) (*UpdateWidgetValueResponse, error) {
	out := new(UpdateWidgetValueResponse)
	if err := c.invoke(ctx, "UpdateWidgetValue", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
