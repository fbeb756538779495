package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue management",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stream lengths and unacknowledged score requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx := context.Background()
		q := queue.New(rdb)

		scoring, notifications, err := q.Status(ctx)
		if err != nil {
			return fmt.Errorf("queue status: %w", err)
		}
		pending, err := q.Pending(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Queue Status:\n")
		fmt.Printf("  %s:    %d entries, %d unacknowledged\n", queue.StreamScoring, scoring, pending)
		fmt.Printf("  %s: %d entries\n", queue.StreamNotifications, notifications)
		return nil
	},
}

var queueNotificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show recent founder notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt64("limit")
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		list, err := queue.New(rdb).RecentNotifications(context.Background(), limit)
		if err != nil {
			return err
		}

		fmt.Println("Founder notifications (newest first):")
		if len(list) == 0 {
			fmt.Println("  (none)")
		}
		for _, d := range list {
			n := d.Message
			fmt.Printf("  %s  assessment=%s company=%s urgency=%s critical=%d\n",
				d.ID, n.AssessmentID, n.CompanyID, n.UrgencyLevel, n.CriticalCount)
			if len(n.Domains) > 0 {
				fmt.Printf("    domains: %s\n", joinDomains(n.Domains))
			}
		}
		return nil
	},
}

func init() {
	queueNotificationsCmd.Flags().Int64("limit", 20, "Number of notifications to show")

	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueNotificationsCmd)
}
