package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizadapt/internal/adaptive"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Answer adaptive questions in the terminal",
	Long: `Run an adaptive session on one topic from the terminal. Each answer
updates ability, mastery and template statistics exactly as the HTTP API
does. Enter an option number, or q to end the session.`,
	RunE: runPractice,
}

func init() {
	practiceCmd.Flags().Int64("learner", 1, "Learner ID")
	practiceCmd.Flags().Int64("topic", 0, "Topic ID (omit to list topics)")
	practiceCmd.Flags().Int("count", 10, "Maximum number of questions")
}

func runPractice(cmd *cobra.Command, args []string) error {
	learner, _ := cmd.Flags().GetInt64("learner")
	topicID, _ := cmd.Flags().GetInt64("topic")
	count, _ := cmd.Flags().GetInt("count")

	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(cmd.Context()))
	ctx := cmd.Context()

	topics, err := a.store.Catalog().ListTopics(ctx)
	if err != nil {
		return err
	}
	var subjectID int64
	for _, t := range topics {
		if t.ID == topicID {
			subjectID = t.SubjectID
		}
	}
	if subjectID == 0 {
		if len(topics) == 0 {
			return errors.New("no topics in the database; run `quizadapt seed` first")
		}
		fmt.Println("Available topics:")
		for _, t := range topics {
			fmt.Printf("  %3d  %s\n", t.ID, t.Name)
		}
		return errors.New("choose a topic with --topic")
	}

	sess, err := a.engine.StartSession(ctx, learner, subjectID, topicID)
	if err != nil {
		return err
	}
	if sess.Resumed {
		fmt.Printf("Resuming session %d (%d answered so far).\n\n", sess.ID, sess.Attempted)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for i := 1; i <= count; i++ {
		q, err := a.engine.NextInSession(ctx, learner, sess.ID)
		if err != nil {
			var ue *adaptive.UpstreamError
			if errors.As(err, &ue) {
				fmt.Printf("Question generation failed: %v\n", err)
				break
			}
			return err
		}

		fmt.Printf("── Question %d/%d  (difficulty %.2f) ──\n", i, count, q.Difficulty)
		fmt.Println(q.Text)
		for j, o := range q.Options {
			fmt.Printf("  %d) %s\n", j+1, o)
		}

		start := time.Now()
		choice, quit, ok := readChoice(scanner, len(q.Options))
		if !ok || quit {
			break
		}

		fb, err := a.engine.ProcessResponse(ctx, adaptive.ResponseInput{
			LearnerID:      learner,
			QuestionID:     q.QuestionID,
			SelectedOption: choice,
			ResponseTime:   time.Since(start).Seconds(),
			SessionID:      sess.ID,
		})
		if err != nil {
			return err
		}
		printFeedback(q, fb)
	}

	sum, err := a.engine.EndSession(ctx, learner, sess.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Session complete: %d/%d correct (%.0f%%) in %s.\n",
		sum.Correct, sum.Attempted, sum.Accuracy*100, sum.Duration.Round(time.Second))
	return nil
}

// readChoice prompts until the learner enters a valid option number. ok is
// false when input is closed.
func readChoice(scanner *bufio.Scanner, n int) (choice int, quit, ok bool) {
	for {
		fmt.Print("\nYour answer: ")
		if !scanner.Scan() {
			fmt.Println("\n(input closed)")
			return 0, false, false
		}
		in := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(in, "q") {
			return 0, true, true
		}
		v, err := strconv.Atoi(in)
		if err == nil && v >= 1 && v <= n {
			return v - 1, false, true
		}
		fmt.Printf("Enter a number from 1 to %d, or q to stop.", n)
	}
}

func printFeedback(q *adaptive.NextQuestion, fb *adaptive.Feedback) {
	if fb.Correct {
		fmt.Println("\033[32m✓ Correct!\033[0m")
	} else {
		fmt.Printf("\033[31m✗ Wrong.\033[0m Answer: %d) %s\n", fb.CorrectOption+1, q.Options[fb.CorrectOption])
	}
	if fb.Misconception != "" {
		fmt.Printf("Likely misconception: %s\n", fb.Misconception)
	}
	if fb.Explanation != "" {
		fmt.Printf("Explanation: %s\n", fb.Explanation)
	}
	fmt.Printf("Mastery %.2f  Ability %+.2f", fb.UpdatedMastery, fb.GlobalAbility)
	if fb.SuggestedReview {
		fmt.Print("  (review suggested)")
	}
	fmt.Print("\n\n")
}
