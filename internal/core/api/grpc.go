package api

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

/*
 * gRPC binding.
 *
 * Messages are plain Go structs carried by a JSON codec registered under the
 * "json" content subtype; clients select it with grpc.CallContentSubtype.
 * The service descriptor is written by hand, one MethodDesc per operation.
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "geokeeper.v1.Transform"

// CodecName is the content subtype of the JSON codec.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// TransformServer is the handler type of the service descriptor.
type TransformServer interface {
	Paths(context.Context, *PathsRequest) (*PathsResponse, error)
	Direct(context.Context, *DirectRequest) (*DirectResponse, error)
	Via(context.Context, *ViaRequest) (*ViaResponse, error)
	Trajectory(context.Context, *TrajectoryRequest) (*TrajectoryResponse, error)
	Custom(context.Context, *CustomRequest) (*CustomResponse, error)
	Accuracy(context.Context, *AccuracyRequest) (*AccuracyResponse, error)
	RequiredGrids(context.Context, *RequiredGridsRequest) (*RequiredGridsResponse, error)
	Units(context.Context, *UnitsRequest) (*UnitsResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	Normalize(context.Context, *NormalizeRequest) (*NormalizeResponse, error)
	Match(context.Context, *MatchRequest) (*MatchResponse, error)
	Factors(context.Context, *FactorsRequest) (*FactorsResponse, error)
	Vertical(context.Context, *VerticalRequest) (*VerticalResponse, error)
	WellPoint(context.Context, *WellPointRequest) (*WellPointResponse, error)
	WellBatch(context.Context, *WellBatchRequest) (*WellBatchResponse, error)
	LocalOffsets(context.Context, *LocalOffsetRequest) (*LocalOffsetResponse, error)
}

var _ TransformServer = (*Service)(nil)

// unary builds the MethodDesc for one operation. Service errors are mapped
// to status codes here so interceptors observe the final status.
func unary[Req, Resp any](name string, call func(TransformServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				resp, err := call(srv.(TransformServer), ctx, req.(*Req))
				if err != nil {
					return nil, grpcStatus(err)
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the transformation service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransformServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Paths", TransformServer.Paths),
		unary("Direct", TransformServer.Direct),
		unary("Via", TransformServer.Via),
		unary("Trajectory", TransformServer.Trajectory),
		unary("Custom", TransformServer.Custom),
		unary("Accuracy", TransformServer.Accuracy),
		unary("RequiredGrids", TransformServer.RequiredGrids),
		unary("Units", TransformServer.Units),
		unary("Search", TransformServer.Search),
		unary("Normalize", TransformServer.Normalize),
		unary("Match", TransformServer.Match),
		unary("Factors", TransformServer.Factors),
		unary("Vertical", TransformServer.Vertical),
		unary("WellPoint", TransformServer.WellPoint),
		unary("WellBatch", TransformServer.WellBatch),
		unary("LocalOffsets", TransformServer.LocalOffsets),
	},
	Metadata: "geokeeper/v1/transform",
}

// RegisterTransformServer registers the service on a gRPC server.
func RegisterTransformServer(s grpc.ServiceRegistrar, srv TransformServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the transformation service over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection. Every call uses the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Paths(ctx context.Context, req *PathsRequest, opts ...grpc.CallOption) (*PathsResponse, error) {
	return invoke[PathsResponse](ctx, c, "Paths", req, opts)
}

func (c *Client) Direct(ctx context.Context, req *DirectRequest, opts ...grpc.CallOption) (*DirectResponse, error) {
	return invoke[DirectResponse](ctx, c, "Direct", req, opts)
}

func (c *Client) Via(ctx context.Context, req *ViaRequest, opts ...grpc.CallOption) (*ViaResponse, error) {
	return invoke[ViaResponse](ctx, c, "Via", req, opts)
}

func (c *Client) Trajectory(ctx context.Context, req *TrajectoryRequest, opts ...grpc.CallOption) (*TrajectoryResponse, error) {
	return invoke[TrajectoryResponse](ctx, c, "Trajectory", req, opts)
}

func (c *Client) Custom(ctx context.Context, req *CustomRequest, opts ...grpc.CallOption) (*CustomResponse, error) {
	return invoke[CustomResponse](ctx, c, "Custom", req, opts)
}

func (c *Client) Accuracy(ctx context.Context, req *AccuracyRequest, opts ...grpc.CallOption) (*AccuracyResponse, error) {
	return invoke[AccuracyResponse](ctx, c, "Accuracy", req, opts)
}

func (c *Client) RequiredGrids(ctx context.Context, req *RequiredGridsRequest, opts ...grpc.CallOption) (*RequiredGridsResponse, error) {
	return invoke[RequiredGridsResponse](ctx, c, "RequiredGrids", req, opts)
}

func (c *Client) Units(ctx context.Context, req *UnitsRequest, opts ...grpc.CallOption) (*UnitsResponse, error) {
	return invoke[UnitsResponse](ctx, c, "Units", req, opts)
}

func (c *Client) Search(ctx context.Context, req *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c, "Search", req, opts)
}

func (c *Client) Normalize(ctx context.Context, req *NormalizeRequest, opts ...grpc.CallOption) (*NormalizeResponse, error) {
	return invoke[NormalizeResponse](ctx, c, "Normalize", req, opts)
}

func (c *Client) Match(ctx context.Context, req *MatchRequest, opts ...grpc.CallOption) (*MatchResponse, error) {
	return invoke[MatchResponse](ctx, c, "Match", req, opts)
}

func (c *Client) Factors(ctx context.Context, req *FactorsRequest, opts ...grpc.CallOption) (*FactorsResponse, error) {
	return invoke[FactorsResponse](ctx, c, "Factors", req, opts)
}

func (c *Client) Vertical(ctx context.Context, req *VerticalRequest, opts ...grpc.CallOption) (*VerticalResponse, error) {
	return invoke[VerticalResponse](ctx, c, "Vertical", req, opts)
}

func (c *Client) WellPoint(ctx context.Context, req *WellPointRequest, opts ...grpc.CallOption) (*WellPointResponse, error) {
	return invoke[WellPointResponse](ctx, c, "WellPoint", req, opts)
}

func (c *Client) WellBatch(ctx context.Context, req *WellBatchRequest, opts ...grpc.CallOption) (*WellBatchResponse, error) {
	return invoke[WellBatchResponse](ctx, c, "WellBatch", req, opts)
}

func (c *Client) LocalOffsets(ctx context.Context, req *LocalOffsetRequest, opts ...grpc.CallOption) (*LocalOffsetResponse, error) {
	return invoke[LocalOffsetResponse](ctx, c, "LocalOffsets", req, opts)
}
