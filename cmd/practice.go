package cmd

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spigell/career-twin/internal/interview"
	"go.uber.org/zap"
)

const (
	answerSkip = ""
	answerStop = "q"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a mock interview in the terminal against a resume",
	Run: func(cmd *cobra.Command, _ []string) {
		practice(cmd)
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)

	practiceCmd.Flags().StringP("resume", "r", "", "path to the resume (.pdf, .txt or .docx)")
	practiceCmd.Flags().String("role", "", "target role; asked interactively when unset")
	practiceCmd.Flags().StringP("name", "n", "", "candidate name; taken from the resume when unset")
	practiceCmd.Flags().Bool("follow-ups", false, "ask a follow-up question after every answer")

	practiceCmd.MarkFlagRequired("resume")
}

func practice(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	resumePath, _ := cmd.Flags().GetString("resume")
	role, _ := cmd.Flags().GetString("role")
	name, _ := cmd.Flags().GetString("name")
	followUps, _ := cmd.Flags().GetBool("follow-ups")

	pipeline, cleanup, err := buildPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the interview pipeline", zap.Error(err))
	}
	defer cleanup()

	data, err := os.ReadFile(resumePath)
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err), zap.String("path", resumePath))
	}

	if role == "" {
		role, err = selectRole(pipeline.Roles())
		if err != nil {
			logger.Fatal("selecting a role", zap.Error(err))
		}
	}

	profile, err := pipeline.CreateProfile(ctx, interview.ProfileInput{
		Name:        name,
		TargetRoles: role,
		Filename:    filepath.Base(resumePath),
		Data:        data,
	})
	if err != nil {
		logger.Fatal("creating the profile", zap.Error(err))
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Mock interview for %s: %s", profile.Name, role)))

	session, err := pipeline.StartInterview(ctx, profile.CandidateID, role, interview.Counts{})
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}

	fmt.Println(mutedStyle.Render("Press ENTER on an empty answer to skip a question, type q to finish early."))

	if err := askQuestions(ctx, pipeline, session, followUps); err != nil {
		logger.Fatal("running the interview", zap.Error(err))
	}

	report, err := pipeline.CompleteInterview(ctx, session.ID)
	if errors.Is(err, interview.ErrNoAnswers) {
		fmt.Println(titleStyle.Render("No answers given, nothing to assess."))
		return
	}
	if err != nil {
		logger.Fatal("completing the interview", zap.Error(err))
	}

	printReport(report)
}

func selectRole(roles []string) (string, error) {
	prompt := promptui.Select{
		Label: "Choose a target role and press ENTER",
		Items: roles,
		Size:  len(roles),
	}

	_, role, err := prompt.Run()
	return role, err
}

func askQuestions(ctx context.Context, pipeline *interview.Pipeline, session *interview.Session, followUps bool) error {
	for i, q := range session.Questions {
		fmt.Println()
		fmt.Println(labelStyle.Render(fmt.Sprintf("[%d/%d] %s, %s", i+1, len(session.Questions), q.Category, q.Difficulty)))
		fmt.Println(valueStyle.Render(q.Text))

		answer, err := readAnswer()
		if err != nil {
			return err
		}

		switch answer {
		case answerStop:
			return nil
		case answerSkip:
			continue
		}

		progress, err := pipeline.SubmitAnswer(ctx, session.ID, q.ID, answer)
		if err != nil {
			return err
		}

		fmt.Println(mutedStyle.Render(fmt.Sprintf("answered %d of %d", progress.Answered, progress.Total)))

		if !followUps {
			continue
		}

		followUp, err := pipeline.FollowUp(ctx, session.ID, q.ID)
		if err != nil {
			return err
		}
		fmt.Println(labelStyle.Render("Follow-up:"), valueStyle.Render(followUp.Text))
		fmt.Println(mutedStyle.Render("Think it through; follow-ups are not scored."))
	}

	return nil
}

func readAnswer() (string, error) {
	prompt := promptui.Prompt{
		Label: "Answer",
	}

	answer, err := prompt.Run()
	if errors.Is(err, promptui.ErrInterrupt) {
		return answerStop, nil
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

func printReport(report *interview.Report) {
	fmt.Println(titleStyle.Render("Interview feedback"))

	e := report.Evaluation
	printScore("Overall", e.Overall)
	printScore("Communication", e.Communication)
	printScore("Technical", e.Technical)
	printScore("Confidence", e.Confidence)
	printScore("Relevance", e.Relevance)
	printScore("Readiness", report.Readiness)

	if c := report.Comparison; c != nil && !c.IsFirst {
		fmt.Printf("%s %s\n", labelStyle.Render("Since last session:"),
			valueStyle.Render(fmt.Sprintf("%+.2f (%+.2f%%, %s)", c.Improvement, c.ImprovementPercent, c.Trend)))
	}

	printList("Strengths", report.Strengths)
	printList("Weaknesses", report.Weaknesses)
	printList("Skill gaps", report.SkillGaps)
	printList("Recommendations", report.Recommendations)

	horizons := slices.Sorted(maps.Keys(report.Roadmap))
	for _, horizon := range horizons {
		printList("Roadmap, "+strings.ReplaceAll(horizon, "_", " "), report.Roadmap[horizon])
	}
}

func printScore(label string, score float64) {
	fmt.Printf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(fmt.Sprintf("%.2f", score)))
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(labelStyle.Render(label + ":"))
	for _, item := range items {
		fmt.Println(valueStyle.Render("  - " + item))
	}
}
