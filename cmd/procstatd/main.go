// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// procstatd serves system statistics as JSON over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antimetal/procstat/internal/server"
	"github.com/antimetal/procstat/pkg/procps/host"
	"github.com/antimetal/procstat/pkg/sysinfo"
	"github.com/antimetal/procstat/pkg/whattime"
)

var (
	// CLI Options (alphabetical order)
	bindAddr    string
	development bool
	diskstatTTL time.Duration
	loadinfoTTL time.Duration
	meminfoTTL  time.Duration
	pprofAddr   string
	printOnce   bool
	statTTL     time.Duration
	uptimeTTL   time.Duration
	verbosity   int
)

func init() {
	defaults := server.DefaultConfig()

	flag.StringVar(&bindAddr, "bind-address", ":8080",
		"The address the HTTP API binds to")
	flag.BoolVar(&development, "dev", false,
		"Use human readable development logging")
	flag.DurationVar(&diskstatTTL, "diskstat-ttl", defaults.DiskStatTTL,
		"How long /diskstat responses are cached; negative disables caching")
	flag.DurationVar(&loadinfoTTL, "loadinfo-ttl", defaults.LoadInfoTTL,
		"How long /loadinfo responses are cached; negative disables caching")
	flag.DurationVar(&meminfoTTL, "meminfo-ttl", defaults.MemInfoTTL,
		"How long /meminfo responses are cached; negative disables caching")
	flag.StringVar(&pprofAddr, "pprof-address", "0",
		"The address the pprof server binds to. Set this to '0' to disable the pprof server")
	flag.BoolVar(&printOnce, "print", false,
		"Print one snapshot of every statistic as JSON and exit")
	flag.DurationVar(&statTTL, "stat-ttl", defaults.StatTTL,
		"How long /stat responses are cached; negative disables caching")
	flag.DurationVar(&uptimeTTL, "uptime-ttl", defaults.UptimeTTL,
		"How long /uptime responses are cached; negative disables caching")
	flag.IntVar(&verbosity, "v", 0,
		"Log verbosity; 1 logs every request, 2 logs skipped input")
}

func newLogger() (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

func main() {
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(1)
	}
	setupLog := logger.WithName("setup")

	host.SetLogger(logger)
	session := host.Session()
	setupLog.Info("Statistics source selected", "backend", host.Backend())

	if printOnce {
		if err := printSnapshot(); err != nil {
			setupLog.Error(err, "unable to print snapshot")
			os.Exit(1)
		}
		return
	}

	srv, err := server.New(logger, session, server.Config{
		MemInfoTTL:  meminfoTTL,
		LoadInfoTTL: loadinfoTTL,
		UptimeTTL:   uptimeTTL,
		StatTTL:     statTTL,
		DiskStatTTL: diskstatTTL,
	})
	if err != nil {
		setupLog.Error(err, "unable to create server")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if pprofAddr != "0" {
		go servePprof(ctx, setupLog)
	}

	setupLog.Info("starting procstatd")
	if err := srv.Start(ctx, bindAddr); err != nil {
		setupLog.Error(err, "problem running server")
		os.Exit(1)
	}
}

func servePprof(ctx context.Context, logger logr.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Addr: pprofAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("starting pprof server", "addr", pprofAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(err, "pprof server stopped")
	}
}

func printSnapshot() error {
	disks, err := sysinfo.GetDiskStat()
	if err != nil {
		return fmt.Errorf("failed to read disk statistics: %w", err)
	}

	snapshot := map[string]any{
		"meminfo":  sysinfo.GetMemInfo(),
		"loadinfo": sysinfo.GetLoadAvg(),
		"kernel":   sysinfo.GetKernelInfo(),
		"uptime":   sysinfo.GetUptime(),
		"btime":    sysinfo.GetBootTime(),
		"diskstat": disks,
		"stat":     sysinfo.GetStat(),
		"cpuinfo":  sysinfo.GetCPUInfo(),
		"whattime": whattime.UptimeString(false),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}
