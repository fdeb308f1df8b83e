// Command smoke drives a running service through a full verification
// scenario: register a roster, submit a match, verify to consensus, and
// check the resulting rating updates.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/diskilabs/diskirater/internal/smoketest"
	"github.com/diskilabs/diskirater/pkg/logger"
)

const (
	defaultPlayersPerSide = 3
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "Base URL of the service")
		area    = flag.String("area", "", "Area ID to use (default: random smoke-* area)")
		perSide = flag.Int("per-side", defaultPlayersPerSide, "Players per team")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &smoketest.Config{
		BaseURL:        *baseURL,
		Area:           *area,
		PlayersPerSide: *perSide,
		Timeout:        *timeout,
	}

	if err := smoketest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("smoke test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
