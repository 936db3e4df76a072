package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me-foundation/m2/config"
	"github.com/me-foundation/m2/core/events"
	"github.com/me-foundation/m2/core/state"
	"github.com/me-foundation/m2/crypto"
	nativecommon "github.com/me-foundation/m2/native/common"
	"github.com/me-foundation/m2/native/marketplace"
	"github.com/me-foundation/m2/observability/logging"
	"github.com/me-foundation/m2/rpc"
	"github.com/me-foundation/m2/storage"
)

// logEmitter mirrors settlement events onto the structured log so operators
// can follow activity without an indexer attached.
type logEmitter struct {
	log *slog.Logger
}

func (e logEmitter) Emit(evt events.Event) {
	e.log.Info("event", "type", evt.EventType())
}

const operatorPassEnv = "M2_OPERATOR_PASS"

// loadOperatorKey opens the node's signing key, generating and persisting a
// fresh one on first start.
func loadOperatorKey(path, passphrase string) (*crypto.PrivateKey, error) {
	key, err := crypto.LoadFromKeystore(path, passphrase)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	key, err = crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveToKeystore(path, key, passphrase); err != nil {
		return nil, err
	}
	return key, nil
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	metricsAddress := flag.String("metrics", "127.0.0.1:9464", "Address for the Prometheus metrics endpoint; empty disables")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.Log)

	dataDir := cfg.Node.DataDir
	if dataDir == "" {
		dataDir = "./m2-data"
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		log.Error("create data dir", "path", dataDir, "err", err)
		os.Exit(1)
	}
	operator, err := loadOperatorKey(filepath.Join(dataDir, "operator.keystore"), os.Getenv(operatorPassEnv))
	if err != nil {
		log.Error("operator key", "err", err)
		os.Exit(1)
	}
	log.Info("operator identity", "address", operator.PubKey().Address().String())

	db, err := storage.NewLevelDB(filepath.Join(dataDir, "ledger"))
	if err != nil {
		log.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	engine := marketplace.NewEngine()
	engine.SetState(state.NewManager(db))
	engine.SetRoyaltyRegistry(marketplace.NewStaticRoyaltyRegistry())
	engine.SetEmitter(logEmitter{log: log})
	if cfg.Marketplace.Paused {
		engine.SetPauses(nativecommon.StaticPauses{"marketplace": true})
		log.Warn("marketplace module starting paused")
	}

	server := &http.Server{
		Addr:              cfg.RPC.Listen,
		Handler:           rpc.NewServer(engine, cfg.RPC, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("rpc listening", "addr", cfg.RPC.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("rpc server", "err", err)
			os.Exit(1)
		}
	}()

	var metricsServer *http.Server
	if *metricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: *metricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics listening", "addr", *metricsAddress)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "err", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("rpc shutdown", "err", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error("metrics shutdown", "err", err)
		}
	}
}
