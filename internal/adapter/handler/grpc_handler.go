package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/adapter/handler/pb"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type GRPCHandler struct {
	pb.UnimplementedPaymentServiceServer
	paymentService *service.PaymentService
}

func NewGRPCHandler(paymentService *service.PaymentService) *GRPCHandler {
	return &GRPCHandler{paymentService: paymentService}
}

func (h *GRPCHandler) InitializePayment(ctx context.Context, req *pb.InitializePaymentRequest) (*pb.InitializePaymentResponse, error) {
	metadata := make(map[string]any, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	var amount any
	if req.Amount != "" {
		amount = req.Amount
	}

	auth, err := h.paymentService.Initialize(ctx, service.InitializeInput{
		Email:      req.Email,
		Amount:     amount,
		AmountUnit: domain.AmountUnit(req.AmountUnit),
		Reference:  req.Reference,
		OrderID:    req.OrderId,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.InitializePaymentResponse{
		AuthorizationUrl: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Reference:        auth.Reference,
	}, nil
}

func (h *GRPCHandler) VerifyPayment(ctx context.Context, req *pb.VerifyPaymentRequest) (*pb.VerifyPaymentResponse, error) {
	order, err := h.paymentService.Verify(ctx, req.Reference)
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.VerifyPaymentResponse{
		OrderId:       order.ID,
		Reference:     order.Reference,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
	}, nil
}

func (h *GRPCHandler) ListBanks(ctx context.Context, _ *pb.ListBanksRequest) (*pb.ListBanksResponse, error) {
	banks, err := h.paymentService.Banks(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &pb.ListBanksResponse{Banks: make([]pb.Bank, 0, len(banks))}
	for _, b := range banks {
		resp.Banks = append(resp.Banks, pb.Bank{Name: b.Name, Code: b.Code, Currency: b.Currency})
	}
	return resp, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.Is(err, service.ErrPaymentFailed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrUpstream):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
