package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustedstack/tapp-core/pkg/attestation"
	"github.com/trustedstack/tapp-core/pkg/boot"
	"github.com/trustedstack/tapp-core/pkg/config"
	"github.com/trustedstack/tapp-core/pkg/deploy"
	"github.com/trustedstack/tapp-core/pkg/hashutil"
	"github.com/trustedstack/tapp-core/pkg/keys"
	"github.com/trustedstack/tapp-core/pkg/nonce"
	"github.com/trustedstack/tapp-core/pkg/task"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("🚀 Starting trusted application platform service")

	var (
		configPath = flag.String("config", "/etc/tapp/config.yaml", "Path to config.yaml")
		showHelp   = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ [Config] Failed to load configuration: %v", err)
	}
	log.Printf("📋 [Config] Loaded from %s (bind=%s app_root=%s hash=%s)",
		*configPath, cfg.Server.BindAddress, cfg.Boot.AppRoot, cfg.Boot.HashAlgorithm)

	hashAlg, err := hashutil.ParseAlgorithm(cfg.Boot.HashAlgorithm)
	if err != nil {
		log.Fatalf("❌ [Boot] Invalid hash_algorithm %q: %v", cfg.Boot.HashAlgorithm, err)
	}
	hasher, err := hashutil.New(hashAlg)
	if err != nil {
		log.Fatalf("❌ [Boot] Failed to build hasher: %v", err)
	}

	deployer := deploy.NewDriver(cfg.Boot.AppRoot, log.New(log.Writer(), "[Deploy] ", log.LstdFlags))

	surface, err := attestation.NewSurface(attestation.NewSoftwareDriver(), log.New(log.Writer(), "[Attestation] ", log.LstdFlags))
	if err != nil {
		log.Fatalf("❌ [Attestation] Failed to initialize driver: %v", err)
	}
	log.Printf("✅ [Attestation] Driver ready, tee_type=%s", surface.TEEType())

	nonceLedger := nonce.NewLedger(cfg.Boot.NonceWindowSeconds.AsDuration())
	nonceLedger.StartSweeper(func() int64 { return time.Now().Unix() })
	defer nonceLedger.Stop()

	var keySource keys.Source
	if cfg.KBS != nil {
		log.Printf("🔑 [Keys] key-broker mode configured (endpoint=%s) — private key retrieval is unavailable", cfg.KBS.Endpoint)
		keySource = keys.NewBrokerSource(cfg.KBS.Endpoint)
	} else {
		log.Printf("🔑 [Keys] in-memory key mode")
		keySource = keys.NewInMemorySource()
	}

	bootService := boot.NewService(
		hasher,
		task.NewMachine(),
		deployer,
		surface,
		nonceLedger,
		keySource,
		log.New(log.Writer(), "[Boot] ", log.LstdFlags),
	)

	rpc := NewRPCServer(bootService, log.New(log.Writer(), "[RPC] ", log.LstdFlags))
	httpServer := &http.Server{
		Addr:              cfg.Server.BindAddress,
		Handler:           rpc.Handler(passthroughAuth),
		ReadHeaderTimeout: cfg.Server.RequestTimeoutSeconds.AsDuration(),
	}

	go func() {
		log.Printf("🌐 [RPC] listening on %s", cfg.Server.BindAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ [RPC] server failed: %v", err)
		}
	}()

	log.Printf("✅ Platform service ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP server shutdown error: %v", err)
	}

	log.Printf("✅ Platform service stopped")
}

func printHelp() {
	log.Printf(`trusted application platform service

Usage:
  tapp-core [flags]

Flags:
  -config string
        Path to config.yaml (default "/etc/tapp/config.yaml")
  -help
        Show this message
`)
}
