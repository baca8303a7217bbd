package services

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return s
}

func TestHandlerForecastDefaultsHorizon(t *testing.T) {
	svc := newService(&fakeStore{events: fixtureEvents()}, Options{DefaultHorizonDays: 2})
	handler := NewHandler(svc, nil)

	resp, err := handler.Forecast(context.Background(), mustStruct(t, map[string]any{
		"categories": []any{"PASTA", "SOY"},
	}))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}

	results := resp.GetFields()["results"].GetListValue().GetValues()
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	fields := results[0].GetStructValue().GetFields()
	if got := fields["horizon_days"].GetNumberValue(); got != 2 {
		t.Fatalf("expected default horizon 2, got %v", got)
	}
	if got := len(fields["table"].GetListValue().GetValues()); got != 2+2 {
		t.Fatalf("expected 4 table rows, got %d", got)
	}
	if got := fields["table"].GetListValue().GetValues()[0].GetStructValue().GetFields()["datetime"].GetStringValue(); got != "2021-04-05" {
		t.Fatalf("expected most recent date first, got %s", got)
	}

	failures := resp.GetFields()["errors"].GetListValue().GetValues()
	if len(failures) != 1 {
		t.Fatalf("expected one failure, got %d", len(failures))
	}
	failure := failures[0].GetStructValue().GetFields()
	if failure["category"].GetStringValue() != "SOY" || failure["code"].GetStringValue() != codes.FailedPrecondition.String() {
		t.Fatalf("unexpected failure %v", failure)
	}
}

func TestHandlerInvalidArguments(t *testing.T) {
	svc := newService(&fakeStore{events: fixtureEvents()}, Options{})
	handler := NewHandler(svc, nil)

	cases := []struct {
		name   string
		fields map[string]any
	}{
		{name: "zero horizon", fields: map[string]any{"categories": []any{"FISH"}, "horizon_days": 0}},
		{name: "fractional horizon", fields: map[string]any{"categories": []any{"FISH"}, "horizon_days": 1.5}},
		{name: "oversized horizon", fields: map[string]any{"categories": []any{"FISH"}, "horizon_days": 2147483647}},
		{name: "no categories", fields: map[string]any{"categories": []any{}}},
		{name: "categories not a list", fields: map[string]any{"categories": "FISH"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := handler.Forecast(context.Background(), mustStruct(t, tc.fields))
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
		})
	}

	if _, err := handler.Forecast(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for nil request, got %v", err)
	}
}

func TestHandlerAssessAndInvalidate(t *testing.T) {
	store := &fakeStore{events: fixtureEvents()}
	handler := NewHandler(newService(store, Options{}), nil)

	resp, err := handler.Assess(context.Background(), mustStruct(t, map[string]any{"categories": []any{"FISH", "SOY"}}))
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	assessments := resp.GetFields()["assessments"].GetListValue().GetValues()
	if len(assessments) != 1 {
		t.Fatalf("expected one assessment, got %d", len(assessments))
	}
	if label := assessments[0].GetStructValue().GetFields()["label"].GetStringValue(); label != "surplus" {
		t.Fatalf("expected surplus, got %s", label)
	}
	failure := resp.GetFields()["errors"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if failure["code"].GetStringValue() != codes.NotFound.String() {
		t.Fatalf("expected NotFound for missing supplier orders, got %v", failure["code"])
	}

	out, err := handler.InvalidateSources(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if !out.GetFields()["invalidated"].GetBoolValue() || store.purged != 1 {
		t.Fatalf("expected purge, got %v purged=%d", out, store.purged)
	}
}
