package controller

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nick-enoent/maestro/pkg/log"
	"github.com/nick-enoent/maestro/pkg/topology"
)

// SpawnAggregator starts one aggregator daemon as a detached subprocess,
// per §6: `ldmsd -x <xprt>:<port> -a <auth> -l log/<name>.log -m 2g -r
// log/<name>.pid`. logDir is created if missing. The process is started
// and detached; its lifecycle afterward is tracked only through the
// Communicator's daemon_status verb, not through the OS process handle.
func SpawnAggregator(agg topology.Aggregator, host topology.Host, logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("create log dir %s: %w", logDir, err)
	}

	logPath := filepath.Join(logDir, agg.Name+".log")
	pidPath := filepath.Join(logDir, agg.Name+".pid")

	args := []string{
		"-x", fmt.Sprintf("%s:%s", host.Xprt, host.Port),
		"-a", host.Auth.Name,
		"-l", logPath,
		"-m", "2g",
		"-r", pidPath,
	}

	cmd := exec.Command("ldmsd", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn aggregator %s: %w", agg.Name, err)
	}

	log.WithHost(agg.Host).Info().
		Str("aggregator", agg.Name).
		Int("pid", cmd.Process.Pid).
		Str("log", logPath).
		Msg("aggregator daemon spawned")

	// ldmsd writes its own PID file at pidPath once daemonized.
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}
