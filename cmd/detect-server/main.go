// Package main serves grocery item detection over HTTP.
//
// Endpoints:
//
//	GET  /health - readiness, reports whether the model is loaded
//	POST /detect - {"image": "<base64 jpeg>"} -> {"items": [{label, bbox}]}
//
// Environment variables:
//
//	DETECT_ADDR    - listen address (default :5001)
//	MODEL_CONFIG   - darknet config path (default models/grocer-eye.cfg)
//	MODEL_WEIGHTS  - darknet weights path (default models/grocer-eye.weights)
//	MODEL_CLASSES  - class list path, one per line (optional)
package main

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/shelfscout/shelfscout-core/core/detection/yolo"
	"github.com/shelfscout/shelfscout-core/core/tracking"
)

func main() {
	_ = godotenv.Load()

	addr := envOr("DETECT_ADDR", ":5001")
	configPath := envOr("MODEL_CONFIG", "models/grocer-eye.cfg")
	weightsPath := envOr("MODEL_WEIGHTS", "models/grocer-eye.weights")
	classesPath := envOr("MODEL_CLASSES", "models/classes.txt")

	detector, err := yolo.NewDetector(configPath, weightsPath, classesPath)
	if err != nil {
		log.Printf("Detection model not loaded: %v", err)
		log.Printf("/detect will return 503 until config and weights are in place")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth(detector))
	mux.HandleFunc("POST /detect", handleDetect(detector))

	log.Printf("Detection server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func handleHealth(detector *yolo.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"model_loaded": detector != nil,
		})
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectedItem struct {
	Label string               `json:"label"`
	BBox  tracking.BoundingBox `json:"bbox"`
}

func handleDetect(detector *yolo.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if detector == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "model not loaded"})
			return
		}

		var request detectRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
			return
		}

		frame, err := base64.StdEncoding.DecodeString(request.Image)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "image is not valid base64"})
			return
		}

		items, err := detector.Detect(r.Context(), frame)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
			return
		}

		response := make([]detectedItem, 0, len(items))
		for _, item := range items {
			response = append(response, detectedItem{Label: item.Label, BBox: item.Box})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": response})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
