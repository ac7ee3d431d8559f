package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/styles"
)

// errUnhealthy is returned when any component fails its check.
var errUnhealthy = errors.New("one or more components are unreachable")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check connectivity to the embedding, LLM and storage services",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Health == nil {
		return errors.New("health checks not configured")
	}

	s := styles.DefaultStyles()
	healthy := true
	for _, c := range svc.Health.Check(cmd.Context()) {
		state := s.Success.Render("OK")
		if c.Err != nil {
			healthy = false
			state = s.Error.Render(fmt.Sprintf("FAILED: %v", c.Err))
		}
		cmd.Printf("  %-10s %-30s %s\n", c.Name, orDash(c.Detail), state)
	}

	if svc.Unavailable != nil {
		cmd.Printf("\nPipeline unavailable: %v\n", svc.Unavailable)
		healthy = false
	}
	if !healthy {
		return errUnhealthy
	}
	return nil
}
