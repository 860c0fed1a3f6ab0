package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studyplatform/xpd/internal/app/gamification"
)

func init() {
	rootCmd.AddCommand(usersCmd)
}

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"ls"},
	Short:   "List users with a stored record",
	RunE:    runUsers,
}

func runUsers(cmd *cobra.Command, args []string) error {
	l, err := openLocal("")
	if err != nil {
		return err
	}
	defer l.close()

	keys, err := l.store.Keys(gamification.KeyPrefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No records yet. Run 'xpd login -u <user>' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tXP\tLEVEL\tSTREAK\tLAST ACTIVE")
	for _, k := range keys {
		uid := strings.TrimPrefix(k, gamification.KeyPrefix)
		data := l.engine.Load(uid)
		lvl := gamification.LevelInfo(data.XP)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", uid, data.XP, lvl.Level, data.Streak, data.LastActiveDate)
	}
	return w.Flush()
}
