package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/intake"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/secrets"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errAborted = errors.New("aborted by user")

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an interview from a local CV and job description",
	Run: func(cmd *cobra.Command, _ []string) {
		create(cmd)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().String("cv", "", "path to the candidate CV")
	createCmd.Flags().String("jd", "", "path to the job description")
	createCmd.Flags().String("prompt", "", "system prompt for the interviewer")
	createCmd.Flags().String("prompt-file", "", "file with the system prompt (takes precedence over --prompt)")
	createCmd.Flags().String("name", "", "interviewer name")
	createCmd.Flags().Int("max-questions", 0, "question budget (default from interview.default-max-questions)")
	createCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation or missing values")

	createCmd.MarkFlagRequired("cv")
	createCmd.MarkFlagRequired("jd")
}

func create(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	flags := cmd.Flags()
	cvPath, _ := flags.GetString("cv")
	jdPath, _ := flags.GetString("jd")
	name, _ := flags.GetString("name")
	maxQuestions, _ := flags.GetInt("max-questions")
	autoApprove, _ := flags.GetBool("auto-approve")
	inline, _ := flags.GetString("prompt")
	promptFile, _ := flags.GetString("prompt-file")

	systemPrompt, err := secrets.Load(secrets.Source{
		Name:     "system prompt",
		Value:    inline,
		File:     promptFile,
		Optional: true,
	})
	if err != nil {
		logger.Fatal("reading system prompt", zap.Error(err))
	}

	if systemPrompt == "" {
		if autoApprove {
			logger.Fatal("system prompt is required", zap.String("hint", "pass --prompt or --prompt-file"))
		}
		if systemPrompt, err = ask("System prompt", requireText); err != nil {
			logger.Fatal("reading system prompt", zap.Error(err))
		}
	}

	if name == "" && !autoApprove {
		if name, err = ask(fmt.Sprintf("Interviewer name (empty for %q)", config.Interview.DefaultInterviewerName), nil); err != nil {
			logger.Fatal("reading interviewer name", zap.Error(err))
		}
	}

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}
	defer c.close()

	svc, err := c.newIntake(config.Interview, logger)
	if err != nil {
		logger.Fatal("creating intake service", zap.Error(err))
	}

	cv, err := os.Open(cvPath)
	if err != nil {
		logger.Fatal("opening cv", zap.Error(err))
	}
	defer cv.Close()

	jd, err := os.Open(jdPath)
	if err != nil {
		logger.Fatal("opening job description", zap.Error(err))
	}
	defer jd.Close()

	logger.Info("creating interview",
		zap.String("cv", cvPath),
		zap.String("jd", jdPath),
		zap.String("interviewer", name),
		zap.Int("max_questions", maxQuestions),
	)

	if !autoApprove {
		if err := confirm("Create interview?"); err != nil {
			logger.Info("interview is not created", zap.Error(err))
			return
		}
	}

	session, err := svc.Create(ctx, intake.CreateRequest{
		CV:              intake.Upload{Name: filepath.Base(cvPath), Reader: cv},
		JD:              intake.Upload{Name: filepath.Base(jdPath), Reader: jd},
		SystemPrompt:    systemPrompt,
		InterviewerName: name,
		MaxQuestions:    maxQuestions,
	})
	if err != nil {
		logger.Fatal("creating interview", zap.Error(err))
	}

	logger.Info("interview created",
		zap.String("interview_id", session.ID),
		zap.String("interviewer", session.InterviewerName),
		zap.Int("max_questions", session.MaxQuestions),
		zap.Int("initial_questions", len(session.InitialQuestions)),
	)
}

func requireText(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("value is required")
	}
	return nil
}

func ask(label string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{Label: label, Validate: validate}
	answer, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func confirm(label string) error {
	sel := promptui.Select{Label: label, Items: []string{PromptYes, PromptNo}}
	_, answer, err := sel.Run()
	if err != nil {
		return err
	}
	if answer != PromptYes {
		return errAborted
	}
	return nil
}
