package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage weekly availability rules",
}

var (
	ruleMemberID    string
	ruleWeekday     string
	ruleStart       string
	ruleEnd         string
	ruleUnavailable bool
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var rulesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a member's availability window for a weekday",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		memberID, err := uuid.Parse(ruleMemberID)
		if err != nil {
			return fmt.Errorf("invalid member id: %w", err)
		}
		weekday, ok := weekdayNames[strings.ToLower(ruleWeekday)]
		if !ok {
			return fmt.Errorf("unknown weekday %q", ruleWeekday)
		}
		start, err := schedulingDomain.ParseClock(ruleStart)
		if err != nil {
			return err
		}
		end, err := schedulingDomain.ParseClock(ruleEnd)
		if err != nil {
			return err
		}

		rule, err := schedulingDomain.NewAvailabilityRule(memberID, weekday, start, end, !ruleUnavailable)
		if err != nil {
			return err
		}
		if err := c.RuleRepo.Save(cmd.Context(), rule); err != nil {
			return fmt.Errorf("failed to save rule: %w", err)
		}

		state := "available"
		if ruleUnavailable {
			state = "unavailable"
		}
		fmt.Printf("Rule set: %s %s %s-%s (%s)\n", memberID, weekday, ruleStart, ruleEnd, state)
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a member's availability rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		memberID, err := uuid.Parse(ruleMemberID)
		if err != nil {
			return fmt.Errorf("invalid member id: %w", err)
		}
		rules, err := c.RuleRepo.FindByMember(cmd.Context(), memberID)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		if len(rules) == 0 {
			fmt.Println("No rules configured.")
			return nil
		}

		for _, r := range rules {
			state := "available"
			if !r.IsAvailable() {
				state = "unavailable"
			}
			fmt.Printf("%-9s %s-%s %s\n", r.Weekday(), schedulingDomain.FormatClock(r.Start()), schedulingDomain.FormatClock(r.End()), state)
		}
		return nil
	},
}

func init() {
	rulesSetCmd.Flags().StringVar(&ruleMemberID, "member", "", "member id")
	rulesSetCmd.Flags().StringVar(&ruleWeekday, "weekday", "", "weekday name")
	rulesSetCmd.Flags().StringVar(&ruleStart, "start", "09:00", "window start (HH:MM)")
	rulesSetCmd.Flags().StringVar(&ruleEnd, "end", "17:00", "window end (HH:MM)")
	rulesSetCmd.Flags().BoolVar(&ruleUnavailable, "unavailable", false, "mark the day unavailable")
	_ = rulesSetCmd.MarkFlagRequired("member")
	_ = rulesSetCmd.MarkFlagRequired("weekday")

	rulesListCmd.Flags().StringVar(&ruleMemberID, "member", "", "member id")
	_ = rulesListCmd.MarkFlagRequired("member")

	rulesCmd.AddCommand(rulesSetCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}
