package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/studyplatform/xpd/internal/app/gamification"
	"github.com/studyplatform/xpd/internal/app/provider"
	"github.com/studyplatform/xpd/internal/daemon"
	"github.com/studyplatform/xpd/internal/domain"
	"github.com/studyplatform/xpd/internal/infra/platform"
)

// local is the engine stack offline commands run against.
type local struct {
	cfg      daemon.Config
	store    daemon.RecordStore
	engine   *gamification.Engine
	provider *provider.Provider
	close    func() error
}

// openLocal opens the configured store. With a token, refreshes read the
// platform snapshot; without one they use an empty snapshot.
func openLocal(token string) (*local, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, closeFn, err := daemon.OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	engine := gamification.NewEngine(gamification.NewStore(store))
	var p *provider.Provider
	if token != "" && cfg.Platform.BaseURL != "" {
		p = provider.New(engine, platform.NewClient(cfg.Platform.BaseURL, cfg.PlatformTimeout()))
	} else {
		p = provider.New(engine, nil)
	}

	return &local{cfg: cfg, store: store, engine: engine, provider: p, close: closeFn}, nil
}

func requireUser(user string) error {
	if user == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

// ─── Output ─────────────────────────────────────────────────────────────────

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printState renders a state summary followed by its badge table.
func printState(w io.Writer, st domain.GamificationState) error {
	fmt.Fprintf(w, "Level %d  %s (%s)\n", st.Level, st.Title, st.LevelName)
	fmt.Fprintf(w, "XP     %d  [%s] %d%%\n", st.XP, progressBar(st.XPProgress, 20), st.XPProgress)
	if st.Level < gamification.MaxLevel() {
		fmt.Fprintf(w, "       %d XP to level %d\n", st.XPForNextLevel-st.XP, st.Level+1)
	}
	fmt.Fprintf(w, "Streak %d day(s), longest %d, last active %s\n\n", st.Streak, st.LongestStreak, st.LastActiveDate)

	if err := printBadges(w, st.Badges); err != nil {
		return err
	}

	if len(st.RecentXPGains) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tXP\tREASON")
		for _, g := range st.RecentXPGains {
			fmt.Fprintf(tw, "%s\t+%d\t%s\n", g.Timestamp.Format("2006-01-02 15:04"), g.Amount, g.Reason)
		}
		return tw.Flush()
	}
	return nil
}

func printBadges(w io.Writer, badges []domain.Badge) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BADGE\tNAME\tPROGRESS\tEARNED")
	for _, b := range badges {
		earned := "-"
		if b.Earned && b.EarnedAt != nil {
			earned = *b.EarnedAt
		} else if b.Earned {
			earned = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d (%d%%)\t%s\n", b.ID, b.Name, b.Current, b.Requirement, b.Progress, earned)
	}
	return tw.Flush()
}

func progressBar(pct, width int) string {
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}
