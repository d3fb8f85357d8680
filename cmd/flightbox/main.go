// Command flightbox collects ADS-B, FLARM, and GNSS input and fuses it
// into a FLARM-compatible NMEA stream served over TCP. Grounded on
// flightbox.py's flightbox_main/flightbox_init wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flightbox/flightbox/internal/airconnect"
	"github.com/flightbox/flightbox/internal/config"
	"github.com/flightbox/flightbox/internal/fusion"
	"github.com/flightbox/flightbox/internal/gnss"
	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
	"github.com/flightbox/flightbox/internal/metrics"
	"github.com/flightbox/flightbox/internal/ognserver"
	"github.com/flightbox/flightbox/internal/sbs1client"
	"github.com/flightbox/flightbox/internal/store"
	"github.com/flightbox/flightbox/internal/supervisor"
)

func main() {
	logFile := flag.String("log-file", "/tmp/flightbox.log", "path to log file")
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	out, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}
	defer out.Close()

	log := logging.New(out, cfg.Verbose)
	log.Info("Started logging framework")

	reg := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
			log.Info("serving metrics", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error("metrics server stopped", "err", err.Error())
			}
		}()
	}

	h := hub.New(256)
	st := store.New()
	sup := supervisor.New(h, log)

	fusionSub := h.Subscribe(hub.ContentSBS1, hub.ContentOGN, hub.ContentNMEA)
	flarmSub := h.Subscribe(hub.ContentFLARM, hub.ContentNMEA)

	f := fusion.New(fusionSub, h, st, cfg.TypeSet(), log, reg)
	sup.AddSubscriber(f.RunInput)
	sup.AddSubscriber(f.RunTick)

	ac := airconnect.New(fmt.Sprintf(":%d", cfg.AirConnect.Port), cfg.AirConnect.Password, log)
	sup.AddSubscriber(func(ctx context.Context) { ac.RunOutput(ctx, flarmSub) })
	sup.AddSubscriber(func(ctx context.Context) { ac.Run(ctx) })

	ogn := ognserver.New(fmt.Sprintf(":%d", cfg.OGNServer.Port), cfg.OGNServer.ServerName, cfg.OGNServer.ServerSoftware, h, log)
	sup.AddProducer(func(ctx context.Context) { ogn.Run(ctx) })

	sbs1 := sbs1client.New(fmt.Sprintf("%s:%d", cfg.SBS1.Host, cfg.SBS1.Port), cfg.TypeSet(), h, log)
	sup.AddProducer(sbs1.Run)

	gnssReader := gnss.New(cfg.GNSS.Device, cfg.GNSS.Baud, h, log)
	sup.AddProducer(gnssReader.Run)

	sup.AddSubscriber(func(ctx context.Context) { pollClientGauges(ctx, reg, ogn, ac) })

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	log.Info("Entering main procedure")
	sup.Run(ctx)
	log.Info("Terminating")
}

// pollClientGauges keeps the metrics registry's connected-client gauges
// in sync with the two TCP servers' live client sets.
func pollClientGauges(ctx context.Context, reg *metrics.Registry, ogn *ognserver.Server, ac *airconnect.Server) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.ClientsOGN.Set(float64(ogn.ClientCount()))
			reg.ClientsAirConn.Set(float64(ac.ClientCount()))
		}
	}
}
