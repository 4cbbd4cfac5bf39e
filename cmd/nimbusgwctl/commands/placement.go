package commands

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nimbusstore/gateway/internal/cli/output"
	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/placement"
)

var placementCmd = &cobra.Command{
	Use:   "placement",
	Short: "Inspect the storage-node placement view",
}

var placementListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sharks seeded in config, with their last-known health",
	RunE:  runPlacementList,
}

func init() {
	placementCmd.AddCommand(placementListCmd)
}

// runPlacementList seeds a placement.View from config exactly as gatewayd's startup
// path does (registry.Build), but never starts its background refresh loop: a
// one-shot CLI invocation only needs the seeded snapshot, not a live poller.
func runPlacementList(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	nodes := make([]placement.Node, 0, len(cfg.Sharks))
	now := time.Now()
	for _, s := range cfg.Sharks {
		nodes = append(nodes, placement.Node{
			ID:            s.ID,
			Datacenter:    s.Datacenter,
			BaseURL:       s.BaseURL,
			Circuit:       placement.CircuitClosed,
			LastHeartbeat: now,
		})
	}
	view := placement.NewView(nodes, nil, cfg.Placement.RefreshInterval, cfg.Placement.StaleAfter)

	table := output.NewTableData("ID", "DATACENTER", "BASE URL", "UTILIZATION", "CIRCUIT", "HEALTHY")
	for _, n := range view.Snapshot() {
		healthy := n.Healthy(cfg.Storage.MaxUtilizationPct, cfg.Placement.StaleAfter, now)
		table.AddRow(n.ID, n.Datacenter, n.BaseURL, strconv.Itoa(n.UtilizationPct)+"%", circuitString(n.Circuit), strconv.FormatBool(healthy))
	}
	output.PrintTable(os.Stdout, table)
	return nil
}

func circuitString(c placement.CircuitState) string {
	switch c {
	case placement.CircuitOpen:
		return "open"
	case placement.CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}
