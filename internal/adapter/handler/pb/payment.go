// Package pb declares the storefront.payment.v1.PaymentService gRPC service.
// Messages travel as JSON under the "json" content-subtype, so clients must
// call with grpc.CallContentSubtype(pb.CodecName).
package pb

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const (
	CodecName   = "json"
	ServiceName = "storefront.payment.v1.PaymentService"

	InitializePaymentMethod = "/" + ServiceName + "/InitializePayment"
	VerifyPaymentMethod     = "/" + ServiceName + "/VerifyPayment"
	ListBanksMethod         = "/" + ServiceName + "/ListBanks"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

type InitializePaymentRequest struct {
	Email      string            `json:"email"`
	Amount     string            `json:"amount"`
	AmountUnit string            `json:"amount_unit,omitempty"`
	Reference  string            `json:"reference,omitempty"`
	OrderId    string            `json:"order_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type InitializePaymentResponse struct {
	AuthorizationUrl string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyPaymentRequest struct {
	Reference string `json:"reference"`
}

type VerifyPaymentResponse struct {
	OrderId       string `json:"order_id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

type ListBanksRequest struct{}

type Bank struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Currency string `json:"currency"`
}

type ListBanksResponse struct {
	Banks []Bank `json:"banks"`
}

type PaymentServiceServer interface {
	InitializePayment(context.Context, *InitializePaymentRequest) (*InitializePaymentResponse, error)
	VerifyPayment(context.Context, *VerifyPaymentRequest) (*VerifyPaymentResponse, error)
	ListBanks(context.Context, *ListBanksRequest) (*ListBanksResponse, error)
}

type UnimplementedPaymentServiceServer struct{}

func (UnimplementedPaymentServiceServer) InitializePayment(context.Context, *InitializePaymentRequest) (*InitializePaymentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method InitializePayment not implemented")
}

func (UnimplementedPaymentServiceServer) VerifyPayment(context.Context, *VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyPayment not implemented")
}

func (UnimplementedPaymentServiceServer) ListBanks(context.Context, *ListBanksRequest) (*ListBanksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBanks not implemented")
}

func RegisterPaymentServiceServer(s grpc.ServiceRegistrar, srv PaymentServiceServer) {
	s.RegisterService(&PaymentService_ServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(PaymentServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PaymentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PaymentServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var PaymentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "InitializePayment",
			Handler:    unary(InitializePaymentMethod, PaymentServiceServer.InitializePayment),
		},
		{
			MethodName: "VerifyPayment",
			Handler:    unary(VerifyPaymentMethod, PaymentServiceServer.VerifyPayment),
		},
		{
			MethodName: "ListBanks",
			Handler:    unary(ListBanksMethod, PaymentServiceServer.ListBanks),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/adapter/handler/pb/payment.go",
}
