package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/utils"
)

func TestDecodeForecastRequest(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]any{
		"categories":   []any{"FISH", "SOY"},
		"horizon_days": 7,
	})
	req, err := DecodeForecastRequest(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Categories) != 2 || req.Categories[1] != "SOY" {
		t.Fatalf("unexpected categories %v", req.Categories)
	}
	if !req.HasHorizon || req.HorizonDays != 7 {
		t.Fatalf("unexpected horizon %+v", req)
	}

	in, _ = structpb.NewStruct(map[string]any{"categories": []any{"FISH"}, "horizon_days": nil})
	req, err = DecodeForecastRequest(in)
	if err != nil {
		t.Fatalf("decode null horizon: %v", err)
	}
	if req.HasHorizon {
		t.Fatalf("null horizon should count as absent")
	}
}

func TestDecodeRejectsMalformedFields(t *testing.T) {
	cases := []map[string]any{
		{"categories": []any{"FISH", 3}},
		{"categories": []any{"FISH"}, "horizon_days": "7"},
		{"categories": []any{"FISH"}, "horizon_days": 2.5},
	}
	for i, fields := range cases {
		in, _ := structpb.NewStruct(fields)
		if _, err := DecodeForecastRequest(in); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}

	in, _ := structpb.NewStruct(map[string]any{"top_n": -1})
	if _, err := DecodeSummarizeRequest(in); err == nil {
		t.Fatalf("expected negative top_n to fail")
	}
	topN, err := DecodeSummarizeRequest(&structpb.Struct{})
	if err != nil || topN != 0 {
		t.Fatalf("expected zero top_n for empty request, got %d %v", topN, err)
	}
}

func TestEncodeForecastResponse(t *testing.T) {
	day := time.Date(2021, time.March, 2, 0, 0, 0, 0, time.UTC)
	results := []models.ForecastResult{{
		ID:          "run-1",
		Category:    "FISH",
		HorizonDays: 1,
		Table: []models.DemandPoint{
			{Datetime: day, OrderVolume: 4.5, Item: "FISH"},
		},
		Decomposition: []models.ForecastRow{
			{Date: day, Predicted: 4.5, Trend: 4, Components: map[string]float64{"weekly": 0.5, "bad": math.NaN()}},
		},
		LastObserved: day.AddDate(0, 0, -1),
		CreatedAt:    day,
	}}
	failures := []*utils.AppError{
		utils.NewCategoryError("forecast", "SOY", "forecast failed", &engine.InsufficientHistoryError{Category: "SOY", Dates: 1}),
	}

	out, err := EncodeForecastResponse(results, failures)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	result := out.GetFields()["results"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if result["last_observed"].GetStringValue() != "2021-03-01" {
		t.Fatalf("unexpected last_observed %v", result["last_observed"])
	}
	row := result["table"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if row["order_volume"].GetNumberValue() != 4.5 || row["item"].GetStringValue() != "FISH" {
		t.Fatalf("unexpected table row %v", row)
	}
	components := result["decomposition"].GetListValue().GetValues()[0].GetStructValue().GetFields()["components"].GetStructValue().GetFields()
	if _, ok := components["bad"]; ok {
		t.Fatalf("non-finite component should be dropped")
	}
	if components["weekly"].GetNumberValue() != 0.5 {
		t.Fatalf("unexpected weekly component %v", components["weekly"])
	}

	failure := out.GetFields()["errors"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if failure["category"].GetStringValue() != "SOY" || failure["code"].GetStringValue() != codes.FailedPrecondition.String() {
		t.Fatalf("unexpected failure %v", failure)
	}
}

func TestEncodeAssessAndSummary(t *testing.T) {
	out, err := EncodeAssessResponse([]models.Assessment{{
		Category: "FISH",
		Counts:   models.OriginCounts{Requester: 10, Supplier: 16},
		Ratio:    0.6,
		Label:    models.AdequacySurplus,
		Advisory: "plenty",
		Monthly:  []models.MonthlyCount{{Month: "Jan", Origin: models.OriginRequester, Count: 10}},
	}}, nil)
	if err != nil {
		t.Fatalf("encode assess: %v", err)
	}
	a := out.GetFields()["assessments"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if a["label"].GetStringValue() != "surplus" || a["supplier_count"].GetNumberValue() != 16 {
		t.Fatalf("unexpected assessment %v", a)
	}
	if len(out.GetFields()["errors"].GetListValue().GetValues()) != 0 {
		t.Fatalf("expected empty errors list")
	}

	out, err = EncodeSummaryResponse([]models.PopulationSummary{{
		Origin:      models.OriginSupplier,
		TotalOrders: 3,
		TopProducts: []models.ProductCount{{Category: "RICE", Count: 3}},
		FoodGroups:  []models.GroupShare{{FoodGroup: "Grain", Percent: 100}},
	}})
	if err != nil {
		t.Fatalf("encode summary: %v", err)
	}
	pop := out.GetFields()["populations"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if pop["origin"].GetStringValue() != "supplier" || pop["total_orders"].GetNumberValue() != 3 {
		t.Fatalf("unexpected population %v", pop)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{&engine.InvalidHorizonError{HorizonDays: 0}, codes.InvalidArgument},
		{&engine.EmptyCategoryError{Category: "X"}, codes.NotFound},
		{&engine.CategoryNotFoundError{Category: "X", Origin: "supplier"}, codes.NotFound},
		{&engine.InsufficientHistoryError{Category: "X", Dates: 1}, codes.FailedPrecondition},
		{&engine.ZeroDemandError{Category: "X"}, codes.FailedPrecondition},
		{&engine.ForecastOracleError{Category: "X", Stage: "fit", Err: errors.New("boom")}, codes.Internal},
		{&engine.ForecastOracleError{Category: "X", Stage: "fit", Err: context.DeadlineExceeded}, codes.DeadlineExceeded},
		{fmt.Errorf("wrapped: %w", context.Canceled), codes.Canceled},
		{utils.NewCategoryError("forecast", "X", "failed", &engine.EmptyCategoryError{Category: "X"}), codes.NotFound},
	}
	for i, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("case %d: expected %s, got %s", i, tc.want, got)
		}
	}
}
