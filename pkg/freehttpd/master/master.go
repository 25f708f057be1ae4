// Package master implements spec.md §4.9's master: it loads configuration,
// spawns worker_count children, installs signal handlers, and reaps
// children in the order they were spawned. Since Go cannot safely re-use a
// forked runtime (goroutine scheduler state does not survive fork()), each
// worker is a freshly exec'd copy of the same binary rather than a literal
// fork — the re-exec flag below is this port's translation of
// original_source/src/master.c's fork() call, grounded on the atreugo
// Prefork doc comments and the FD-handoff re-exec pattern in the
// graceful-restarts example from the retrieval pack.
package master

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
)

// WorkerEnvVar is set in a spawned child's environment to tell main() to
// run worker.Run instead of master.Run. Its value is the config path.
const WorkerEnvVar = "FREEHTTPD_WORKER_CONFIG"

// Master owns the worker process table and the signal-driven exit flag.
type Master struct {
	configPath string
	root       *config.Root
	logger     *zap.Logger

	workers []*exec.Cmd
	exiting atomic.Bool
}

// New loads configuration from configPath (spec.md §4.9: "Creates the
// configuration... reads the config file path, parses, validates").
func New(configPath string, logger *zap.Logger) (*Master, error) {
	root, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("master: config: %w", err)
	}
	return &Master{configPath: configPath, root: root, logger: logger}, nil
}

// Root exposes the loaded configuration tree.
func (m *Master) Root() *config.Root { return m.root }

// workerCount returns config's worker_count, defaulting per spec.md §4.9.
func (m *Master) workerCount() int {
	if m.root.WorkerCount > 0 {
		return m.root.WorkerCount
	}
	return config.DefaultWorkerCount
}

// spawnWorkers re-execs the running binary worker_count times, each with
// WorkerEnvVar set to the config path, and records the spawned *exec.Cmd
// in spawn order (master.c's workers[] array). Spawning itself runs
// concurrently via errgroup since each child's Start() is independent;
// the resulting slice preserves index order regardless of completion
// order, so the later ordered-reap step is unaffected.
func (m *Master) spawnWorkers() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("master: resolve executable: %w", err)
	}

	n := m.workerCount()
	m.workers = make([]*exec.Cmd, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			cmd := exec.Command(self)
			cmd.Env = append(os.Environ(), WorkerEnvVar+"="+m.configPath)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			cmd.Stdin = nil
			if err := cmd.Start(); err != nil {
				return fmt.Errorf("master: start worker %d: %w", i, err)
			}
			m.workers[i] = cmd
			if m.logger != nil {
				m.logger.Info("started worker process", zap.Int("pid", cmd.Process.Pid))
			}
			return nil
		})
	}
	return g.Wait()
}

// Run installs SIGTERM/SIGINT (graceful stop) and ignores SIGHUP, spawns
// workers, then blocks reaping each child in the order it was spawned
// (original_source/src/master.c's fhttpd_master_destroy ordering,
// supplemented per SPEC_FULL.md §9). On the exit flag it forwards SIGTERM
// to any children still alive before reaping.
func (m *Master) Run() error {
	if err := m.spawnWorkers(); err != nil {
		m.killAll()
		return err
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				m.exiting.Store(true)
				m.killAll()
			case syscall.SIGHUP:
				// reserved for future config reload; ignored in this core.
			}
		}
	}()

	var firstErr error
	for i, cmd := range m.workers {
		if cmd == nil {
			continue
		}
		err := cmd.Wait()
		if m.logger != nil {
			m.logger.Info("worker terminated", zap.Int("pid", cmd.Process.Pid), zap.Int("index", i))
		}
		if err != nil && !m.exiting.Load() && firstErr == nil {
			firstErr = fmt.Errorf("master: worker %d: %w", i, err)
		}
	}

	return firstErr
}

// killAll sends SIGTERM to every worker still running, per spec.md §4.9's
// "On exit flag, sends SIGTERM to remaining workers".
func (m *Master) killAll() {
	for _, cmd := range m.workers {
		if cmd == nil || cmd.Process == nil {
			continue
		}
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}
}
