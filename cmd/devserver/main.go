package main

import (
	"net/http"

	"github.com/tably/checkout/internal/config"
	"github.com/tably/checkout/internal/devserver"
	"github.com/tably/checkout/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.LogLevel)

	srv := devserver.New(cfg.DraftConfirmDelay, log)
	if cfg.AuthToken != "" {
		srv = srv.WithAuthToken(cfg.AuthToken)
	}
	log.WithField("port", cfg.DevServerPort).Info("devserver listening")
	if err := http.ListenAndServe(":"+cfg.DevServerPort, srv.Router()); err != nil {
		log.WithError(err).Fatal("devserver stopped")
	}
}
