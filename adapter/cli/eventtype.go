package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

var eventTypeCmd = &cobra.Command{
	Use:   "event-type",
	Short: "Manage bookable event types",
}

var (
	etSlug         string
	etName         string
	etDuration     time.Duration
	etBeforeBuffer time.Duration
	etAfterBuffer  time.Duration
	etMinNotice    time.Duration
	etDailyCap     int
	etAdvanceDays  int
)

var eventTypeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an event type",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		var dailyCap *int
		if etDailyCap > 0 {
			dailyCap = &etDailyCap
		}
		eventType, err := schedulingDomain.NewEventType(
			etSlug,
			etName,
			etDuration,
			etBeforeBuffer,
			etAfterBuffer,
			etMinNotice,
			dailyCap,
			etAdvanceDays,
		)
		if err != nil {
			return err
		}
		if err := c.EventTypeRepo.Save(cmd.Context(), eventType); err != nil {
			return fmt.Errorf("failed to save event type: %w", err)
		}

		fmt.Printf("Event type added: %s (%s, %s)\n", eventType.Slug(), eventType.Name(), etDuration)
		return nil
	},
}

func init() {
	eventTypeAddCmd.Flags().StringVar(&etSlug, "slug", "", "url-safe identifier")
	eventTypeAddCmd.Flags().StringVar(&etName, "name", "", "display name")
	eventTypeAddCmd.Flags().DurationVar(&etDuration, "duration", 30*time.Minute, "meeting duration")
	eventTypeAddCmd.Flags().DurationVar(&etBeforeBuffer, "before-buffer", 0, "buffer before the meeting")
	eventTypeAddCmd.Flags().DurationVar(&etAfterBuffer, "after-buffer", 0, "buffer after the meeting")
	eventTypeAddCmd.Flags().DurationVar(&etMinNotice, "min-notice", 0, "minimum notice before a slot can be booked")
	eventTypeAddCmd.Flags().IntVar(&etDailyCap, "daily-cap", 0, "max confirmed bookings per day, 0 for unlimited")
	eventTypeAddCmd.Flags().IntVar(&etAdvanceDays, "advance-days", 60, "how far ahead bookings are allowed")
	_ = eventTypeAddCmd.MarkFlagRequired("slug")
	_ = eventTypeAddCmd.MarkFlagRequired("name")

	eventTypeCmd.AddCommand(eventTypeAddCmd)
	rootCmd.AddCommand(eventTypeCmd)
}
