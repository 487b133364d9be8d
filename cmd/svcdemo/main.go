// svcdemo is a minimal service executable for exercising svcctl with
// the standard backend: it publishes its status record through the
// status lock and runs until terminated.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/phoenix741/svcctl/internal/config"
	"github.com/phoenix741/svcctl/internal/control"
	"github.com/phoenix741/svcctl/internal/control/standard"
	"github.com/phoenix741/svcctl/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default: platform location)")
	backend := flag.String("backend", "", "control backend that launched this process")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcdemo: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcdemo: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// The lock name must match what the control side derives from the
	// service id it resolved this executable from.
	name := control.ServiceNameFromID(os.Args[0])

	lock, err := standard.NewStatusLock(cfg.Control.RuntimeDir, name)
	if err != nil {
		logger.Error("Failed to prepare status lock", zap.Error(err))
		return 1
	}
	if err := lock.Hold(); err != nil {
		logger.Error("Another instance is running", zap.Error(err))
		return 1
	}
	defer lock.Release()

	logger.Info("Service running",
		zap.String("name", name),
		zap.String("launched_by", *backend),
		zap.Int("pid", os.Getpid()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("Service stopping", zap.String("signal", sig.String()))
	return 0
}
