package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dodocap/captcha-server/internal/captcha"
	"github.com/dodocap/captcha-server/internal/config"
	"github.com/dodocap/captcha-server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	registry := captcha.NewRegistry()
	generator := captcha.NewCodeGenerator(cfg)
	renderer, err := captcha.NewRenderer(cfg)
	if err != nil {
		log.Fatalf("failed to create renderer: %v", err)
	}
	sessions := captcha.NewManager(cfg, generator, renderer, registry)

	log.Printf("captcha server starting")
	log.Printf("  listen_addr:     %s", cfg.ListenAddr)
	log.Printf("  secured:         %v", cfg.Secured)
	log.Printf("  expiration:      %s", cfg.ExpirationTime)
	log.Printf("  frame:           %dx%d", cfg.Width, cfg.Height)
	log.Printf("  text_anchor:     (%d,%d)", cfg.TextX, cfg.TextY)
	log.Printf("  font_size:       %v", cfg.FontSize)
	log.Printf("  line_width:      %d", cfg.LineWidth)
	log.Printf("  worker_pool:     %d", cfg.WorkerPoolSize)
	log.Printf("  max_connections: %d", cfg.MaxConnections)

	serverConfig := ws.ServerConfig{
		ListenAddr:     cfg.ListenAddr,
		WorkerPoolSize: cfg.WorkerPoolSize,
		MaxConnections: cfg.MaxConnections,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	}
	if cfg.Secured {
		serverConfig.TLSCertPath = cfg.TLSCertPath
		serverConfig.TLSKeyPath = cfg.TLSKeyPath
	}

	// Each inbound frame is routed to the protocol handler of the
	// connection's session. A frame for a connection whose session is
	// already gone is dropped; teardown is in flight.
	server := ws.NewServer(serverConfig, func(conn *ws.Connection, data []byte) {
		sess := sessions.Get(conn.ID)
		if sess == nil {
			return
		}
		captcha.NewHandler(sess).HandleMessage(data)
	})

	server.SetOnConnect(func(conn *ws.Connection) {
		sessions.Create(conn.ID, conn)
	})
	server.SetOnDisconnect(func(connID string) {
		sessions.Remove(connID)
	})
	server.SetTokenChecker(registry.Contains)

	// Graceful shutdown: close every session so all tokens are revoked
	// before the process exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		sessions.CloseAll()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
