package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/happytummy/demand-signal/internal/api"
)

// Handler implements api.DemandSignalServer on top of DemandService.
type Handler struct {
	service *DemandService
	logger  *slog.Logger
}

var _ api.DemandSignalServer = (*Handler)(nil)

// NewHandler constructs the gRPC adapter.
func NewHandler(service *DemandService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Forecast handles DemandSignal.Forecast.
func (h *Handler) Forecast(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	req, err := api.DecodeForecastRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	horizon := req.HorizonDays
	if !req.HasHorizon {
		horizon = h.service.DefaultHorizonDays()
	}

	h.logger.Debug("Forecast called", slog.Any("categories", req.Categories), slog.Int("horizon_days", horizon))

	results, failures, err := h.service.Forecast(ctx, req.Categories, horizon)
	if err != nil {
		return nil, h.statusError("forecast", err)
	}
	out, err := api.EncodeForecastResponse(results, failures)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode forecast response: %v", err)
	}
	return out, nil
}

// Assess handles DemandSignal.Assess.
func (h *Handler) Assess(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	categories, err := api.DecodeAssessRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	assessments, failures, err := h.service.Assess(ctx, categories)
	if err != nil {
		return nil, h.statusError("assess", err)
	}
	out, err := api.EncodeAssessResponse(assessments, failures)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode assess response: %v", err)
	}
	return out, nil
}

// Summarize handles DemandSignal.Summarize.
func (h *Handler) Summarize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	topN, err := api.DecodeSummarizeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	summaries, err := h.service.Summarize(ctx, topN)
	if err != nil {
		return nil, h.statusError("summarize", err)
	}
	out, err := api.EncodeSummaryResponse(summaries)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode summary response: %v", err)
	}
	return out, nil
}

// InvalidateSources handles DemandSignal.InvalidateSources.
func (h *Handler) InvalidateSources(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := h.service.InvalidateSources(ctx); err != nil {
		return nil, h.statusError("invalidate sources", err)
	}
	return structpb.NewStruct(map[string]any{"invalidated": true})
}

func (h *Handler) statusError(op string, err error) error {
	code := api.ErrorCode(err)
	if errors.Is(err, ErrNoCategories) {
		code = codes.InvalidArgument
	}
	if code == codes.Internal {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	return status.Error(code, err.Error())
}
