package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestFearGreedFetchLatest(t *testing.T) {
	p := NewFearGreedProvider(trace.NewNoopTracerProvider().Tracer("test"))
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/fng/" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		body := `{"data":[{"value":"63","value_classification":"Greed","timestamp":"1771009800","time_until_update":"1111"}]}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	})}

	point, err := p.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if point.Value != 63 || point.Classification != "Greed" || point.TimeUntilUpdateS != 1111 {
		t.Fatalf("unexpected point: %+v", point)
	}
	if !point.Timestamp.Equal(time.Unix(1771009800, 0).UTC()) {
		t.Fatalf("unexpected timestamp: %v", point.Timestamp)
	}
}

func TestFearGreedGetMacro(t *testing.T) {
	cases := []struct {
		value      string
		wantRegime domain.MacroRegime
		wantConf   float64
	}{
		{"85", domain.RegimeBull, 0.7},
		{"20", domain.RegimeBear, 0.6},
		{"50", domain.RegimeNeutral, 0},
	}

	for _, tc := range cases {
		p := NewFearGreedProvider(trace.NewNoopTracerProvider().Tracer("test"))
		p.baseURL = "https://example.com"
		body := `{"data":[{"value":"` + tc.value + `","value_classification":"x","timestamp":"1771009800"}]}`
		p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
				Header:     make(http.Header),
			}, nil
		})}

		reading, err := p.GetMacro(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reading.Regime != tc.wantRegime {
			t.Fatalf("value %s: expected regime %s, got %s", tc.value, tc.wantRegime, reading.Regime)
		}
		if diff := reading.Confidence - tc.wantConf; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("value %s: expected confidence %.2f, got %.2f", tc.value, tc.wantConf, reading.Confidence)
		}
	}
}
