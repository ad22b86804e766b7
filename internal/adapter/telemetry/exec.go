package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/port"

	"go.uber.org/zap"
)

// ExecSource fetches one telemetry snapshot per call by running the helper
// command and decoding its JSON stdout. Each fetch is a fresh process: the
// helper is expected to print a single JSON object and exit.
type ExecSource struct {
	command      string
	args         []string
	fetchTimeout time.Duration
	stringCount  int
	logger       *zap.Logger
}

var _ port.TelemetrySource = (*ExecSource)(nil)

func NewExecSource(cfg config.InverterConfig, fetchTimeout time.Duration, logger *zap.Logger) *ExecSource {
	parts := strings.Fields(cfg.HelperCommand)
	command := ""
	var args []string
	if len(parts) > 0 {
		command = parts[0]
		args = parts[1:]
	}
	args = append(args, "--host", cfg.Host)
	if cfg.Username != "" {
		args = append(args, "--username", cfg.Username)
	}
	if cfg.Password != "" {
		args = append(args, "--password", cfg.Password)
	}
	args = append(args, "--once")
	return &ExecSource{
		command:      command,
		args:         args,
		fetchTimeout: fetchTimeout,
		stringCount:  cfg.Strings,
		logger:       logger.With(zap.String("source", "exec")),
	}
}

func (s *ExecSource) Fetch(ctx context.Context) (*domain.MetricSnapshot, error) {
	if s.command == "" {
		return nil, domain.TransportError(errors.New("no helper command configured"))
	}
	cctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, s.command, s.args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return nil, domain.TransportErrorf("helper command timed out after %s", s.fetchTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.logger.Debug("helper command failed", zap.Int("code", exitErr.ExitCode()),
				zap.String("stderr", strings.TrimSpace(stderr.String())))
			return nil, domain.TransportErrorf("helper command exited with code %d", exitErr.ExitCode())
		}
		return nil, domain.TransportError(err)
	}

	return parsePayload(stdout.Bytes(), s.stringCount)
}

func parsePayload(data []byte, stringCount int) (*domain.MetricSnapshot, error) {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.ParseError(err)
	}
	if len(raw) == 0 {
		return nil, domain.ParseErrorf("helper output contains no metrics")
	}
	snapshot := domain.NewMetricSnapshot(raw, stringCount, time.Now())
	return &snapshot, nil
}
