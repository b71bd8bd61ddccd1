// Package main is the entry point for the nfm marketplace node. It wires the
// ledger state and market engine to the ABCI socket server (consumed by an
// external Tendermint process), the off-ledger SQLite index, and the HTTP
// API.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nftmarket.mini/nfm/internal/abci"
	"nftmarket.mini/nfm/internal/api"
	"nftmarket.mini/nfm/internal/config"
	"nftmarket.mini/nfm/internal/consensus"
	"nftmarket.mini/nfm/internal/docs"
	"nftmarket.mini/nfm/internal/identity"
	"nftmarket.mini/nfm/internal/index"
	"nftmarket.mini/nfm/internal/ledger"
	"nftmarket.mini/nfm/internal/logger"
	"nftmarket.mini/nfm/internal/market"
)

func main() {
	log.Println("nfm node starting...")

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	id, err := identity.LoadOrCreateIdentity(cfg.KeyFile)
	if err != nil {
		log.Fatalf("Failed to load node identity: %v", err)
	}
	log.Printf("Node identity: %s", id.ID())

	state := ledger.NewState()
	genesis, err := config.LoadGenesis(cfg.GenesisFile)
	if err != nil {
		log.Fatalf("Failed to load genesis file: %v", err)
	}
	for account, balance := range genesis.Balances {
		state.Balances[account] = balance
	}
	if len(genesis.Balances) > 0 {
		log.Printf("Loaded %d genesis balances", len(genesis.Balances))
	}

	events := make(chan market.Event, 256)
	policy := market.Policy{AllowUnlistedBids: !cfg.RequireListing}
	app := abci.NewApplication(state, policy, abci.Options{
		Faucet: cfg.EnableFaucet,
		Events: events,
	})

	abciServer, err := consensus.NewServer(app, cfg.ABCISocket)
	if err != nil {
		log.Fatalf("Failed to create ABCI server: %v", err)
	}
	if err := abciServer.Start(); err != nil {
		log.Fatalf("Failed to start ABCI server: %v", err)
	}
	log.Printf("ABCI server listening on %s", cfg.ABCISocket)

	store, err := index.NewStore(cfg.IndexDBFile)
	if err != nil {
		log.Fatalf("Failed to open index store: %v", err)
	}
	indexer := index.NewIndexer(store, events)
	indexer.Start()
	log.Println("Index store initialized")

	lg := logger.New(cfg.LogBuffer)
	broadcaster := consensus.NewBroadcastClient(cfg.TendermintRPC)
	service := api.NewService(broadcaster, app, store, docs.NewService(cfg.DocsDir), lg)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: service.Routes(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server exited: %v", err)
		}
	}()
	log.Printf("API available at http://localhost:%d", cfg.Port)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := abciServer.Stop(); err != nil {
		log.Printf("ABCI shutdown: %v", err)
	}
	close(events)
	indexer.Wait()
	if err := store.Close(); err != nil {
		log.Printf("Index close: %v", err)
	}
	log.Println("Shutdown complete")
}
