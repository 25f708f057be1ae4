// Command freehttpd is the entry point for both roles of the prefork
// model: run without FREEHTTPD_WORKER_CONFIG set, it is the master
// (spec.md §4.9's "reads configuration, forks workers, installs signal
// handlers, reaps children"); run with that variable set, it is one
// worker, re-exec'd by the master rather than literally forked (see
// pkg/freehttpd/master's doc comment for why). Grounded on
// original_source/src/fhttpd.c's main(), translated to Go's process
// model rather than fhttpd_master_create/prepare/start's three-call
// C shape.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/logging"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/master"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/worker"
)

// defaultConfigPath mirrors original_source/src/master.c's
// FHTTPD_MAIN_CONFIG_FILE fallback.
const defaultConfigPath = "/etc/freehttpd/freehttpd.conf"

func main() {
	os.Exit(run())
}

func run() int {
	if configPath := os.Getenv(master.WorkerEnvVar); configPath != "" {
		return runWorker(configPath)
	}
	return runMaster(resolveConfigPath())
}

func resolveConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return defaultConfigPath
}

// runMaster loads configuration, spawns workers, and blocks reaping them,
// per spec.md §4.9. The master logs to the console only: config-driven
// file logging (access/error files, rotation) is a per-worker concern.
func runMaster(configPath string) int {
	bootstrap, _ := zap.NewProduction()
	defer bootstrap.Sync()

	m, err := master.New(configPath, bootstrap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "freehttpd: %v\n", err)
		return 1
	}

	if err := m.Run(); err != nil {
		bootstrap.Error("master exited with error", zap.Error(err))
		return 1
	}

	return 0
}

// runWorker loads the same configuration the master validated and runs
// one event loop instance until SIGTERM/SIGINT drains it.
func runWorker(configPath string) int {
	root, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "freehttpd: worker: config: %v\n", err)
		return 1
	}

	logger, closeLogger, err := logging.New(root.Logging, zap.Int("pid", os.Getpid()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "freehttpd: worker: logging: %v\n", err)
		return 1
	}
	defer closeLogger()

	w, err := worker.New(root, logger)
	if err != nil {
		logger.Error("failed to initialize worker", zap.Error(err))
		return 1
	}

	if err := w.Run(); err != nil {
		logger.Error("worker exited with error", zap.Error(err))
		return 1
	}

	return 0
}
