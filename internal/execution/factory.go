package execution

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/chainflip"
)

// ExecutionFactory creates execution instances based on mode
type ExecutionFactory struct {
	config *infra.Config
}

// NewExecutionFactory creates a new factory
func NewExecutionFactory(cfg *infra.Config) *ExecutionFactory {
	return &ExecutionFactory{config: cfg}
}

// CreateExecution returns the domain.Execution for the configured trading mode.
func (f *ExecutionFactory) CreateExecution() (domain.Execution, error) {
	mode := f.config.Trading.Mode

	slog.Info("Initializing Execution System", slog.String("mode", mode))

	switch mode {
	case infra.ModeDryRun:
		return NewDryRunExecution(), nil

	case infra.ModeLive:
		slog.Info("🚨 Orders will be sent to the Chainflip LP API",
			slog.String("rpc_url", f.config.Venue.RPCURL),
			slog.String("lp_address", f.config.Venue.LPAddress))
		timeout := time.Duration(f.config.Venue.RequestTimeoutSec) * time.Second
		return chainflip.NewClient(f.config.Venue.RPCURL, timeout), nil

	default:
		return nil, fmt.Errorf("unknown execution mode: %s", mode)
	}
}
