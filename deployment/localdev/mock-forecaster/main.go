package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

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

type forecastRow struct {
	DS        string  `json:"ds"`
	YHat      float64 `json:"yhat"`
	Trend     float64 `json:"trend"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
}

// Serves a flat mean forecast so the remote oracle can be exercised locally.
func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req forecastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.History) == 0 || req.Periods < 1 {
			http.Error(w, "history and periods required", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"forecast": flatForecast(req)})
	})

	logger := log.New(log.Writer(), "forecaster-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func flatForecast(req forecastRequest) []forecastRow {
	var sum float64
	for _, p := range req.History {
		sum += float64(p.Y)
	}
	mean := sum / float64(len(req.History))
	row := func(ds string) forecastRow {
		return forecastRow{DS: ds, YHat: mean, Trend: mean, YHatLower: mean * 0.8, YHatUpper: mean * 1.2}
	}

	rows := make([]forecastRow, 0, len(req.History)+req.Periods)
	for _, p := range req.History {
		rows = append(rows, row(p.DS))
	}
	last, err := time.Parse(time.DateOnly, req.History[len(req.History)-1].DS)
	if err != nil {
		return rows
	}
	for i := 1; i <= req.Periods; i++ {
		rows = append(rows, row(last.AddDate(0, 0, i).Format(time.DateOnly)))
	}
	return rows
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
