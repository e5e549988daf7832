package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizadapt/internal/irt"
	"github.com/abhisek/quizadapt/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a learner's ability, mastery and recent answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetInt64("learner")
		limit, _ := cmd.Flags().GetInt("recent")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()

		ability, err := s.Learners().GlobalAbility(ctx, learner)
		if err != nil {
			return err
		}
		mastery, err := s.Learners().ConceptMastery(ctx, learner)
		if err != nil {
			return err
		}
		recent, err := s.Responses().Recent(ctx, learner, limit)
		if err != nil {
			return err
		}

		names := make(map[int64]string, len(mastery))
		for id := range mastery {
			if c, err := s.Questions().GetConcept(ctx, id); err == nil && c != nil {
				names[id] = c.Name
			}
		}

		renderStats(cmd.OutOrStdout(), learnerStats{
			LearnerID: learner,
			Ability:   ability,
			Medium:    irt.Probability(ability, cfg.Engine.IRT.ItemFromDifficulty(0.5, nil, nil)),
			Mastery:   mastery,
			Names:     names,
			Recent:    recent,
		})
		return nil
	},
}

func init() {
	statsCmd.Flags().Int64("learner", 1, "Learner ID")
	statsCmd.Flags().Int("recent", 20, "Number of recent answers to summarize")
}

// learnerStats is what the stats command prints. Names maps concept ids to
// display names; unnamed concepts print as "#id".
type learnerStats struct {
	LearnerID int64
	Ability   float64
	Medium    float64
	Mastery   map[int64]float64
	Names     map[int64]string
	Recent    []store.Response
}

func renderStats(w io.Writer, st learnerStats) {
	fmt.Fprintf(w, "Learner %d\n", st.LearnerID)
	fmt.Fprintf(w, "Ability: %+.3f (P(correct) at medium difficulty %.0f%%)\n\n", st.Ability, 100*st.Medium)

	if len(st.Mastery) == 0 {
		fmt.Fprintln(w, "No concept mastery recorded yet.")
		return
	}

	ids := make([]int64, 0, len(st.Mastery))
	for id := range st.Mastery {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintf(w, "%-28s  %7s\n", "Concept", "Mastery")
	fmt.Fprintln(w, strings.Repeat("─", 38))
	for _, id := range ids {
		name, ok := st.Names[id]
		if !ok {
			name = fmt.Sprintf("#%d", id)
		}
		fmt.Fprintf(w, "%-28s  %6.1f%%\n", clip(name, 28), st.Mastery[id]*100)
	}

	if len(st.Recent) == 0 {
		return
	}
	var (
		correct int
		secs    float64
	)
	for _, r := range st.Recent {
		if r.Correct {
			correct++
		}
		secs += r.ResponseTime
	}
	fmt.Fprintf(w, "\nLast %d answers: %d correct, %.1fs average.\n",
		len(st.Recent), correct, secs/float64(len(st.Recent)))
}
