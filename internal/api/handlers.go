package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/utils"
)

const dateLayout = time.DateOnly

// ForecastRequest is the decoded Forecast payload.
type ForecastRequest struct {
	Categories  []string
	HorizonDays int
	// HasHorizon is false when the request omitted horizon_days.
	HasHorizon bool
}

// DecodeForecastRequest reads {"categories": [...], "horizon_days": n}.
func DecodeForecastRequest(in *structpb.Struct) (ForecastRequest, error) {
	categories, err := stringList(in, "categories")
	if err != nil {
		return ForecastRequest{}, err
	}
	req := ForecastRequest{Categories: categories}
	horizon, ok, err := intField(in, "horizon_days")
	if err != nil {
		return ForecastRequest{}, err
	}
	req.HorizonDays, req.HasHorizon = horizon, ok
	return req, nil
}

// DecodeAssessRequest reads {"categories": [...]}.
func DecodeAssessRequest(in *structpb.Struct) ([]string, error) {
	return stringList(in, "categories")
}

// DecodeSummarizeRequest reads an optional {"top_n": n}; zero means default.
func DecodeSummarizeRequest(in *structpb.Struct) (int, error) {
	topN, _, err := intField(in, "top_n")
	if err != nil {
		return 0, err
	}
	if topN < 0 {
		return 0, fmt.Errorf("top_n must not be negative")
	}
	return topN, nil
}

// EncodeForecastResponse renders forecast results and per-category failures.
func EncodeForecastResponse(results []models.ForecastResult, failures []*utils.AppError) (*structpb.Struct, error) {
	items := make([]any, 0, len(results))
	for _, res := range results {
		table := make([]any, 0, len(res.Table))
		for _, p := range res.Table {
			table = append(table, map[string]any{
				"datetime":     p.Datetime.Format(dateLayout),
				"order_volume": p.OrderVolume,
				"item":         p.Item,
			})
		}
		decomposition := make([]any, 0, len(res.Decomposition))
		for _, row := range res.Decomposition {
			decomposition = append(decomposition, map[string]any{
				"ds":         row.Date.Format(dateLayout),
				"yhat":       row.Predicted,
				"trend":      row.Trend,
				"components": componentMap(row.Components),
			})
		}
		items = append(items, map[string]any{
			"id":            res.ID,
			"category":      res.Category,
			"horizon_days":  res.HorizonDays,
			"last_observed": res.LastObserved.Format(dateLayout),
			"created_at":    res.CreatedAt.Format(time.RFC3339),
			"table":         table,
			"decomposition": decomposition,
		})
	}
	return structpb.NewStruct(map[string]any{
		"results": items,
		"errors":  encodeFailures(failures),
	})
}

// EncodeAssessResponse renders adequacy assessments and per-category failures.
func EncodeAssessResponse(assessments []models.Assessment, failures []*utils.AppError) (*structpb.Struct, error) {
	items := make([]any, 0, len(assessments))
	for _, a := range assessments {
		monthly := make([]any, 0, len(a.Monthly))
		for _, m := range a.Monthly {
			monthly = append(monthly, map[string]any{
				"month":  m.Month,
				"origin": string(m.Origin),
				"count":  m.Count,
			})
		}
		items = append(items, map[string]any{
			"category":        a.Category,
			"requester_count": a.Counts.Requester,
			"supplier_count":  a.Counts.Supplier,
			"ratio":           a.Ratio,
			"label":           string(a.Label),
			"advisory":        a.Advisory,
			"monthly":         monthly,
		})
	}
	return structpb.NewStruct(map[string]any{
		"assessments": items,
		"errors":      encodeFailures(failures),
	})
}

// EncodeSummaryResponse renders population summaries.
func EncodeSummaryResponse(summaries []models.PopulationSummary) (*structpb.Struct, error) {
	items := make([]any, 0, len(summaries))
	for _, s := range summaries {
		products := make([]any, 0, len(s.TopProducts))
		for _, p := range s.TopProducts {
			products = append(products, map[string]any{"category": p.Category, "count": p.Count})
		}
		groups := make([]any, 0, len(s.FoodGroups))
		for _, g := range s.FoodGroups {
			groups = append(groups, map[string]any{"food_group": g.FoodGroup, "percent": g.Percent})
		}
		items = append(items, map[string]any{
			"origin":       string(s.Origin),
			"total_orders": s.TotalOrders,
			"top_products": products,
			"food_groups":  groups,
		})
	}
	return structpb.NewStruct(map[string]any{"populations": items})
}

// ErrorCode maps domain errors onto gRPC status codes.
func ErrorCode(err error) codes.Code {
	var (
		horizon      *engine.InvalidHorizonError
		empty        *engine.EmptyCategoryError
		notFound     *engine.CategoryNotFoundError
		insufficient *engine.InsufficientHistoryError
		zeroDemand   *engine.ZeroDemandError
	)
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.As(err, &horizon):
		return codes.InvalidArgument
	case errors.As(err, &empty), errors.As(err, &notFound):
		return codes.NotFound
	case errors.As(err, &insufficient), errors.As(err, &zeroDemand):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func encodeFailures(failures []*utils.AppError) []any {
	out := make([]any, 0, len(failures))
	for _, f := range failures {
		out = append(out, map[string]any{
			"category": f.Category,
			"code":     ErrorCode(f.Err).String(),
			"message":  f.Error(),
		})
	}
	return out
}

// componentMap copies components in key order, dropping non-finite values
// which structpb cannot carry faithfully.
func componentMap(components map[string]float64) map[string]any {
	keys := make([]string, 0, len(components))
	for k := range components {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v := components[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}

func stringList(in *structpb.Struct, key string) ([]string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s must be a list of strings", key)
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for i, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", key, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func intField(in *structpb.Struct, key string) (int, bool, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, false, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, false, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false, fmt.Errorf("%s must be a number", key)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false, fmt.Errorf("%s must be a whole number, got %v", key, f)
	}
	return int(f), true, nil
}
