package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studyplatform/xpd/internal/app/gamification"
	"github.com/studyplatform/xpd/internal/domain"
)

func init() {
	badgesCmd.Flags().StringVarP(&badgesUser, "user", "u", "", "Show progress for this user")
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(badgesCmd)
}

var badgesUser string

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List the level table",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LEVEL\tXP\tNAME\tTITLE")
		for _, l := range gamification.Levels() {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", l.Level, l.XP, l.Name, l.Title)
		}
		return w.Flush()
	},
}

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List badges, with a user's progress when --user is set",
	RunE:  runBadges,
}

func runBadges(cmd *cobra.Command, args []string) error {
	if badgesUser == "" {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BADGE\tNAME\tCATEGORY\tDESCRIPTION")
		for _, b := range gamification.Catalog() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Category, b.Description)
		}
		return w.Flush()
	}

	l, err := openLocal("")
	if err != nil {
		return err
	}
	defer l.close()

	badges := gamification.BuildBadges(l.engine.Load(badgesUser), domain.EmptySnapshot())
	return printBadges(os.Stdout, badges)
}
