package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "Inspect bookings",
}

var bookingsMemberID string

var bookingsUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List a member's upcoming confirmed bookings",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		memberID, err := uuid.Parse(bookingsMemberID)
		if err != nil {
			return fmt.Errorf("invalid member id: %w", err)
		}
		views, err := c.ListUpcomingHandler.Handle(cmd.Context(), memberID)
		if err != nil {
			return fmt.Errorf("failed to list bookings: %w", err)
		}
		if len(views) == 0 {
			fmt.Println("No upcoming bookings.")
			return nil
		}

		for _, v := range views {
			fmt.Printf("%s  %s - %s  %s <%s>\n",
				v.ID,
				v.StartTime.Format("2006-01-02 15:04"),
				v.EndTime.Format("15:04"),
				v.InviteeName,
				v.InviteeEmail,
			)
		}
		return nil
	},
}

func init() {
	bookingsUpcomingCmd.Flags().StringVar(&bookingsMemberID, "member", "", "member id")
	_ = bookingsUpcomingCmd.MarkFlagRequired("member")

	bookingsCmd.AddCommand(bookingsUpcomingCmd)
	rootCmd.AddCommand(bookingsCmd)
}
