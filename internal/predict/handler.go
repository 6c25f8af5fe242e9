package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Handler exposes the analyzer over HTTP:
//
//	GET /predict     — run an analysis cycle now and return its predictions
//	GET /predictions — return the latest stored prediction list
//	GET /health      — liveness probe
func Handler(a *Analyzer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		preds, err := a.Analyze(ctx)
		if err != nil {
			jsonErr(w, http.StatusBadGateway, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, predictionList(preds))
	})

	mux.HandleFunc("/predictions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		jsonResp(w, http.StatusOK, predictionList(a.Predictions()))
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		jsonResp(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	return mux
}

// predictionList guarantees an empty array rather than null in JSON.
func predictionList(preds []Prediction) []Prediction {
	if preds == nil {
		return []Prediction{}
	}
	return preds
}

func jsonResp(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, status int, msg string) {
	jsonResp(w, status, map[string]string{"error": msg})
}
