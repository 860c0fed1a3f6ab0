package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studyplatform/xpd/internal/app/provider"
	"github.com/studyplatform/xpd/internal/domain"
)

func init() {
	awardCmd.Flags().StringVarP(&awardUser, "user", "u", "", "User id")
	awardCmd.Flags().Int64Var(&awardAmount, "amount", 0, "XP to grant")
	awardCmd.Flags().StringVar(&awardReason, "reason", "", "Reason shown in the XP history")
	awardCmd.Flags().StringVar(&awardAction, "action", "", "Reward table action (e.g. COMPLETE_TOPIC)")
	awardCmd.MarkFlagsMutuallyExclusive("amount", "action")
	awardCmd.MarkFlagsOneRequired("amount", "action")
	rootCmd.AddCommand(awardCmd)
	rootCmd.AddCommand(rewardsCmd)
}

var (
	awardUser   string
	awardAmount int64
	awardReason string
	awardAction string
)

var awardCmd = &cobra.Command{
	Use:   "award",
	Short: "Grant XP to a user",
	Example: `  xpd award -u 42 --action COMPLETE_TOPIC
  xpd award -u 42 --amount 20 --reason "Hackathon"`,
	RunE: runAward,
}

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "List the reward table",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ACTION\tXP\tREASON")
		for _, r := range domain.Rewards() {
			fmt.Fprintf(w, "%s\t%d\t%s\n", r.Action, r.XP, r.Reason)
		}
		return w.Flush()
	},
}

func runAward(cmd *cobra.Command, args []string) error {
	if err := requireUser(awardUser); err != nil {
		return err
	}
	l, err := openLocal("")
	if err != nil {
		return err
	}
	defer l.close()

	sess := providerSession(awardUser, "")
	var st domain.GamificationState
	if awardAction != "" {
		st, err = l.provider.AwardAction(sess, domain.Action(awardAction))
	} else {
		st, err = l.provider.AwardXP(sess, awardAmount, awardReason)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s now has %d XP (level %d, %s)\n", awardUser, st.XP, st.Level, st.Title)
	return nil
}

func providerSession(user, token string) provider.Session {
	return provider.Session{UserID: user, Token: token}
}
