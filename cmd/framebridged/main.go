// Command framebridged runs the framebridge daemon in the foreground without
// the CLI, for service managers such as systemd or launchd.
package main

import (
	"context"
	"log"
	"os"
)

func main() {
	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("framebridged: %v", err)
	}
	if err := run(context.Background(), opts); err != nil {
		log.Fatalf("framebridged: %v", err)
	}
}
