// Command demoserver serves versioned Markdown documents and a host page for
// trying injections end to end.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/mdinject/internal/demoserver"
	"github.com/raysh454/mdinject/internal/logging"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   mdinject demo server")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Documents under /docs/ change when their version is switched")
	fmt.Println("from the control panel; / is a host page with target elements:")
	fmt.Println("  #content, #release-notes, #compat, #status")
	fmt.Println()

	server := demoserver.NewDemoServer(cfg, logging.NewStdoutLogger("demoserver"))
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
