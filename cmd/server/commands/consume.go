package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/crew-booking/internal/logging"
	"github.com/iliyamo/crew-booking/internal/queue"
)

// ConsumeAuditCmd runs only the booking audit consumer, for deployments
// that keep it out of the API process.
func ConsumeAuditCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "consume-audit",
		Short: "Write booking lifecycle events from RabbitMQ to the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			audit, err := logging.InitAuditLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize audit logger: %w", err)
			}
			defer func() { _ = audit.Sync() }()

			err = queue.NewConsumer(app.Cfg.RabbitMQURL, app.Logger, audit).Run(app.Ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
