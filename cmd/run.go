package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentscout/talentscout/internal/ai/gemini"
	"github.com/talentscout/talentscout/internal/interview"
	"github.com/talentscout/talentscout/internal/logger"
	"github.com/talentscout/talentscout/internal/secrets"
	"github.com/talentscout/talentscout/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	defaultScoreRetries = 2
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one screening conversation on stdin/stdout",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("consent", "c", false, "grant snapshot consent without prompting")
	runCmd.Flags().String("snapshot-file", "", "file for consent-gated session snapshots")

	viper.BindPFlag("snapshot-file", runCmd.Flags().Lookup("snapshot-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting talentscout", zap.String("version", version))

	gem := config.gemini()

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  gem.APIKeyFile,
		Value: gem.APIKey,
	})
	if err != nil {
		zlog.Fatal(
			"loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:     apiKey,
		Model:      gem.Model,
		MaxRetries: gem.MaxRetries,
		Backoff:    gem.Backoff,
		Timeout:    gem.Timeout,
		MaxLogLen:  gem.MaxLogLength,
	}, zlog)
	if err != nil {
		zlog.Fatal("creating gemini client", zap.Error(err))
	}

	zlog.Info("gemini client ready", zap.String("model", client.Model()))

	scoreRetries := gem.ScoreRetries
	if scoreRetries <= 0 {
		scoreRetries = defaultScoreRetries
	}
	scoringClient := client.WithRetries(scoreRetries)

	snapshotPath := strings.TrimSpace(viper.GetString("snapshot-file"))

	deps := interview.Deps{
		Questions:  interview.NewQuestionGenerator(client, zlog),
		Scorer:     interview.NewAnswerScorer(scoringClient, zlog),
		Summarizer: interview.NewSummaryGenerator(scoringClient, zlog),
		Logger:     zlog,
	}
	if snapshotPath != "" {
		st := store.New(snapshotPath)
		deps.Store = st
		zlog.Info("snapshot store configured", zap.String("path", st.Path()))
	}

	consent := askConsent(cmd, snapshotPath, zlog)

	machine := interview.NewMachine(deps)
	session := interview.NewSession(consent)

	printAssistant(machine.Start(session))

	scanner := bufio.NewScanner(os.Stdin)
	for !session.Ended() {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}

		input := scanner.Text()
		if strings.TrimSpace(input) == "" {
			continue
		}

		printAssistant(machine.HandleMessage(ctx, session, input))
	}

	zlog.Info("session finished",
		zap.String("phase", session.Phase.String()),
		zap.Int("answer_count", len(session.Answers)),
	)
}

// askConsent prints the privacy notice and collects snapshot consent, unless
// it was pre-granted via the --consent flag.
func askConsent(cmd *cobra.Command, snapshotPath string, zlog *zap.Logger) bool {
	if snapshotPath == "" {
		return false
	}

	fmt.Println("Privacy & data handling:")
	fmt.Println("- We collect only interview-related details.")
	fmt.Println("- Any stored data is anonymized (no raw email/phone).")
	fmt.Printf("- Data is saved locally to %s only if you consent.\n", snapshotPath)
	fmt.Println()

	if cmd != nil {
		if flag := cmd.Flag("consent"); flag != nil && strings.EqualFold(flag.Value.String(), "true") {
			fmt.Println("Consent granted via flag.")
			return true
		}
	}

	prompt := promptui.Select{
		Label: "Do you consent to store anonymized data for demo purposes?",
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		zlog.Warn("consent prompt failed, proceeding without consent", zap.Error(err))
		return false
	}

	return answer == PromptYes
}

func printAssistant(messages []string) {
	for _, message := range messages {
		fmt.Printf("assistant> %s\n", message)
	}
	if len(messages) > 0 {
		fmt.Println()
	}
}
