package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	scheduleService "feeledger_backend/internals/features/finance/schedules/service"
	"feeledger_backend/internals/features/finance/schedules/scheduler"
	"feeledger_backend/internals/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Mark unpaid items past their due date as overdue",
	Long: `Run the overdue sweep once, the same job the API server runs on OVERDUE_CRON.
Items are compared against today in TIMEZONE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		b := scheduleService.NewBuilder(scheduleService.NewGormStore(db), scheduleService.Options{
			DefaultCurrency: cfg.DefaultCurrency,
			Location:        cfg.Location(),
		})
		n, err := scheduler.RunSweep(cmd.Context(), b)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "items marked overdue: %d\n", n)
		return nil
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate-schedule <schedule-id>",
	Short: "Rebuild an unpaid schedule from the current fee assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("regenerate")

		id, err := uuid.Parse(args[0])
		if err != nil {
			return errors.Wrap(err, "schedule id")
		}
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		b := scheduleService.NewBuilder(scheduleService.NewGormStore(db), scheduleService.Options{
			DefaultCurrency: cfg.DefaultCurrency,
			Location:        cfg.Location(),
		})
		sched, err := b.RegenerateSchedule(cmd.Context(), id, nil)
		if err != nil {
			return err
		}
		log.Info().Str("schedule_id", id.String()).Msg("schedule regenerated")
		fmt.Fprintf(cmd.OutOrStdout(), "schedule %s total=%s items=%d\n",
			sched.PaymentScheduleID, sched.PaymentScheduleTotalAmount.StringFixed(2), len(sched.PaymentScheduleItems))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd, regenerateCmd)
}
