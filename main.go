package main

import (
	"bufio"
	"linechat/config"
	"linechat/db"
	"linechat/server"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfgPath := os.Getenv("LINECHAT_CONFIG")
	if cfgPath == "" {
		cfgPath = "linechat.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	srv := server.New(database, &server.ServerConfig{
		Port:         cfg.Port,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	go startMetrics(cfg.MetricsPort)
	go startControlSocket(srv, cfg.ControlSocket)

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		srv.Shutdown()
		os.Remove(cfg.ControlSocket)
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}

func startMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + strconv.Itoa(port)
	log.Printf("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Metrics listener failed: %v", err)
	}
}

func startControlSocket(srv *server.Server, socketPath string) {
	// Remove existing socket file
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		log.Printf("Failed to create control socket: %v", err)
		return
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	log.Printf("Control socket listening on %s", socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}

		go handleControlCommand(srv, conn, socketPath)
	}
}

func handleControlCommand(srv *server.Server, conn net.Conn, socketPath string) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(line) {
	case "stats":
		conn.Write([]byte("OK|" + srv.GetStats() + "\n"))

	case "shutdown":
		conn.Write([]byte("OK|Shutting down\n"))
		conn.Close()

		// Give time for response to be sent
		time.Sleep(100 * time.Millisecond)

		log.Printf("Shutdown requested via control socket")
		srv.Shutdown()
		os.Remove(socketPath)
		os.Exit(0)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
