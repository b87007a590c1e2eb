package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage team members",
}

var (
	memberName     string
	memberEmail    string
	memberProvider string
	memberCalendar string
)

var memberAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a team member",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		member, err := schedulingDomain.NewTeamMember(
			memberName,
			memberEmail,
			schedulingDomain.CalendarProvider(memberProvider),
			memberCalendar,
		)
		if err != nil {
			return err
		}
		if err := c.TeamMemberRepo.Save(cmd.Context(), member); err != nil {
			return fmt.Errorf("failed to save member: %w", err)
		}

		fmt.Printf("Member added: %s <%s>\n", member.Name(), member.Email())
		fmt.Printf("  id:       %s\n", member.ID())
		fmt.Printf("  provider: %s\n", member.CalendarProvider())
		return nil
	},
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active team members in booking order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		members, err := c.TeamMemberRepo.FindActiveOrderedByFairness(cmd.Context(), nil)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		if len(members) == 0 {
			fmt.Println("No active members.")
			return nil
		}

		for _, m := range members {
			cursor := "never booked"
			if at := m.FairnessCursor(); at != nil {
				cursor = at.Format("2006-01-02 15:04")
			}
			fmt.Printf("%s  %-24s %-32s last booked: %s\n", m.ID(), m.Name(), m.Email(), cursor)
		}
		return nil
	},
}

func init() {
	memberAddCmd.Flags().StringVar(&memberName, "name", "", "member name")
	memberAddCmd.Flags().StringVar(&memberEmail, "email", "", "member email")
	memberAddCmd.Flags().StringVar(&memberProvider, "provider", "google", "calendar provider (google or caldav)")
	memberAddCmd.Flags().StringVar(&memberCalendar, "calendar", "", "calendar id, defaults to the email")
	_ = memberAddCmd.MarkFlagRequired("name")
	_ = memberAddCmd.MarkFlagRequired("email")

	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberListCmd)
	rootCmd.AddCommand(memberCmd)
}
