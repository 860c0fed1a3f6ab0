package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyplatform/xpd/internal/domain"
)

func init() {
	for _, c := range []*cobra.Command{stateCmd, loginCmd} {
		c.Flags().StringVarP(&stateUser, "user", "u", "", "User id")
		c.Flags().StringVar(&stateToken, "token", "", "Platform bearer token; enables activity sync")
		c.Flags().BoolVar(&stateJSON, "json", false, "Print the state as JSON")
		rootCmd.AddCommand(c)
	}
}

var (
	stateUser  string
	stateToken string
	stateJSON  bool
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show a user's level, streak and badges",
	Long: `Show a user's gamification state from the local store.

Newly satisfied badges are credited, but the daily login is not counted;
use 'xpd login' for that.`,
	RunE: runState,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run a full refresh for a user, counting today's login",
	RunE:  runLogin,
}

func runState(cmd *cobra.Command, args []string) error {
	if err := requireUser(stateUser); err != nil {
		return err
	}
	l, err := openLocal("")
	if err != nil {
		return err
	}
	defer l.close()

	data, writable := l.engine.Read(stateUser)
	if !writable {
		return fmt.Errorf("read record for %s: %w", stateUser, domain.ErrStoreUnavailable)
	}
	res, err := l.engine.BuildState(stateUser, data, domain.EmptySnapshot())
	if err != nil {
		return err
	}
	return renderState(res.State)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if err := requireUser(stateUser); err != nil {
		return err
	}
	l, err := openLocal(stateToken)
	if err != nil {
		return err
	}
	defer l.close()

	st, err := l.provider.Refresh(context.Background(), providerSession(stateUser, stateToken))
	if err != nil {
		return err
	}
	return renderState(st)
}

func renderState(st domain.GamificationState) error {
	if stateJSON {
		return writeJSON(os.Stdout, st)
	}
	return printState(os.Stdout, st)
}
