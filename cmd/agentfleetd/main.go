// Package main is the entry point for the agentfleetd daemon.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentfleet-io/agentfleet/internal/daemon"
)

func main() {
	log.SetPrefix("[agentfleetd] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	d, err := daemon.New()
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}

	if err := d.Start(); err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	d.Stop()
	fmt.Println("Daemon stopped")
}
