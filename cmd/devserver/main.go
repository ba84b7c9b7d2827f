package main

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/f0rthspace/refinance-go/internal/config"
	"github.com/f0rthspace/refinance-go/internal/devserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	store := devserver.NewStore()
	handler := devserver.NewHandler(store, cfg.APIToken, cfg.DevPaymentURL, cfg.IsDevelopment(), logger)

	r := handler.Router()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	logger.Info("devserver starting",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
