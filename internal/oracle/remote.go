package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/utils"
)

// Remote delegates fitting and prediction to an external forecasting service.
// The service receives the full history on every prediction.
type Remote struct {
	baseURL    string
	path       string
	httpClient *http.Client
	logger     *slog.Logger
}

type historyPoint struct {
	DS string `json:"ds"`
	Y  int    `json:"y"`
}

type forecastRequest struct {
	Category string         `json:"category"`
	History  []historyPoint `json:"history"`
	Periods  int            `json:"periods"`
	Freq     string         `json:"freq"`
}

type forecastResponse struct {
	Forecast []map[string]any `json:"forecast"`
}

// NewRemote constructs a client targeting baseURL + path. A timeout <= 0
// leaves the request bounded only by the caller's context.
func NewRemote(baseURL, forecastPath string, timeout time.Duration, logger *slog.Logger) (*Remote, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("remote oracle base URL not configured")
	}
	if timeout < 0 {
		timeout = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    forecastPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Name implements engine.Oracle.
func (r *Remote) Name() string { return KindRemote }

type remoteModel struct {
	remote *Remote
	series models.DailySeries
}

// Fit implements engine.Oracle. Fitting happens remotely during Predict.
func (r *Remote) Fit(ctx context.Context, series models.DailySeries) (engine.Model, error) {
	if r == nil {
		return nil, fmt.Errorf("remote oracle not initialised")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateFitInput(series); err != nil {
		return nil, err
	}
	return &remoteModel{remote: r, series: series}, nil
}

// Predict implements engine.Model.
func (m *remoteModel) Predict(ctx context.Context, horizonDays int) ([]models.ForecastRow, error) {
	if err := validateHorizon(horizonDays); err != nil {
		return nil, err
	}

	payload := forecastRequest{
		Category: m.series.Category,
		History:  make([]historyPoint, 0, m.series.Len()),
		Periods:  horizonDays,
		Freq:     "D",
	}
	for _, p := range m.series.Points {
		payload.History = append(payload.History, historyPoint{DS: p.Date.Format(time.DateOnly), Y: p.Count})
	}

	var response forecastResponse
	if err := m.remote.postJSON(ctx, m.remote.forecastURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("remote forecast request failed: %w", err)
	}
	if len(response.Forecast) == 0 {
		return nil, fmt.Errorf("remote forecast returned no rows")
	}

	rows := make([]models.ForecastRow, 0, len(response.Forecast))
	for i, raw := range response.Forecast {
		row, err := decodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	m.remote.logger.Debug("remote forecast received",
		slog.String("category", m.series.Category),
		slog.Int("rows", len(rows)),
	)
	if err := checkRows(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// decodeRow maps ds/yhat/trend and keeps every other numeric column as a
// component.
func decodeRow(raw map[string]any) (models.ForecastRow, error) {
	ds, ok := raw["ds"].(string)
	if !ok {
		return models.ForecastRow{}, fmt.Errorf("missing ds")
	}
	date, err := utils.ParseDate(ds)
	if err != nil {
		return models.ForecastRow{}, err
	}
	yhat, ok := raw["yhat"].(float64)
	if !ok {
		return models.ForecastRow{}, fmt.Errorf("missing yhat")
	}

	row := models.ForecastRow{Date: date, Predicted: yhat, Components: make(map[string]float64)}
	for key, value := range raw {
		if key == "ds" || key == "yhat" {
			continue
		}
		if f, ok := value.(float64); ok {
			row.Components[key] = f
		}
	}
	row.Trend = row.Components["trend"]
	return row, nil
}

func (r *Remote) forecastURL() string {
	cleaned := "/" + strings.TrimLeft(r.path, "/")
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return r.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (r *Remote) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("forecast service returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
