package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cv-app-yz/cv-app/internal/analyzer"
	"github.com/cv-app-yz/cv-app/internal/document"
	"github.com/cv-app-yz/cv-app/internal/download"
	"github.com/cv-app-yz/cv-app/internal/logger"
	"github.com/cv-app-yz/cv-app/internal/model"
	"github.com/cv-app-yz/cv-app/internal/submission"
	"github.com/cv-app-yz/cv-app/internal/utils"
	"github.com/cv-app-yz/cv-app/internal/view"
)

const (
	PromptOpenJob  = "Open a job posting"
	PromptSavePDF  = "Save the optimized CV"
	PromptResubmit = "Submit again"
	PromptExit     = "Exit"
	PromptBack     = "back"
)

var errExit = errors.New("exit requested")

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Send a CV for optimization and feedback",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd, analyzer.ModeOptimize)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Analyze a CV and match it against job postings in a city",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd, analyzer.ModeAnalyzeAndMatch)
	},
}

func init() {
	for _, c := range []*cobra.Command{optimizeCmd, matchCmd} {
		rootCmd.AddCommand(c)

		c.Flags().StringP("file", "f", "", "path to the CV in PDF format")
		c.Flags().Bool("plain", false, "do not show the progress spinner")
		c.Flags().BoolP("no-prompt", "y", false, "print the result and exit without the action menu")
	}

	matchCmd.Flags().StringP("location", "l", "", "city to match job postings in (default is the location config key)")
}

// run is the main command for the cli.
func run(cmd *cobra.Command, mode analyzer.Mode) {
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

	logger.Info("starting the cv-app", zap.String("version", version), zap.String("mode", string(mode)))

	// do not bother error since the config was already decoded
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	input, err := prepareInput(cmd, config)
	if input.Document != nil {
		if warning := input.Document.Warning(); warning != "" {
			logger.Warn("the service may reject the document",
				zap.String("file", input.Document.Name),
				zap.String("reason", warning),
				zap.String("hint", "set require-text to stop before sending such files"),
			)
		}
	}
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			logger.Fatal("the document can not be sent", zap.String("reason", verr.Reason))
		}
		logger.Fatal("loading the document", zap.Error(err))
	}

	client := analyzer.New(logger, config.BaseURL, config.Timeout)
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	ctrl := submission.New(client, logger)
	unsubscribe := ctrl.OnChange(func(s submission.Snapshot) {
		logger.Debug("state changed", zap.Stringer("status", s.Status), zap.String("attempt_id", s.AttemptID))
	})
	defer unsubscribe()

	plain, _ := cmd.Flags().GetBool("plain")
	noPrompt, _ := cmd.Flags().GetBool("no-prompt")

	for {
		outcome, err := submit(ctx, ctrl, mode, input, plain)
		if errors.Is(err, view.ErrInterrupted) {
			logger.Info("exiting", zap.String("reason", "interrupted"))
			return
		}

		snapshot := ctrl.Snapshot()
		fmt.Println(view.Render(snapshot))

		if err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				logger.Error("submission rejected", zap.String("reason", verr.Reason))
				os.Exit(1)
			}
			logger.Fatal("submission", zap.Error(err))
		}

		logger.Info("submission finished", zap.Stringer("outcome", outcome), zap.Int("jobs", len(snapshot.Jobs)))

		if noPrompt {
			if snapshot.Status == submission.Failed {
				os.Exit(1)
			}
			return
		}

		err = actionLoop(ctx, client, config, snapshot, logger)
		switch {
		case err == nil:
			logger.Info("submitting again", zap.String("file", input.Document.Name))
		case errors.Is(err, errExit):
			return
		default:
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// prepareInput loads the document named by --file. No --file leaves the
// document absent so the controller raises its notice.
func prepareInput(cmd *cobra.Command, config *Config) (submission.Input, error) {
	path, _ := cmd.Flags().GetString("file")

	var location string
	if flag := cmd.Flags().Lookup("location"); flag != nil {
		location = utils.FirstNonEmpty(flag.Value.String(), config.Location)
	}

	input := submission.Input{Location: location}
	if path == "" {
		return input, nil
	}

	doc, err := document.Load(path, document.Options{MaxSize: config.MaxFileSize, RequireText: config.RequireText})
	if err != nil {
		return input, err
	}
	input.Document = doc

	return input, nil
}

func submit(ctx context.Context, ctrl *submission.Controller, mode analyzer.Mode, input submission.Input, plain bool) (submission.Outcome, error) {
	do := func() (submission.Outcome, error) {
		return ctrl.Submit(ctx, mode, input)
	}

	if plain || input.Document == nil {
		return do()
	}

	return view.RunSubmission(ctrl, input.Document.Name, do)
}

// actionLoop offers follow-up actions until the user exits or asks to submit again.
// A nil return means submit again.
func actionLoop(ctx context.Context, client *analyzer.Client, config *Config, snapshot submission.Snapshot, logger *zap.Logger) error {
	for {
		items := make([]string, 0, 4)
		if len(snapshot.Jobs) > 0 {
			items = append(items, PromptOpenJob)
		}
		if snapshot.HasDownload() {
			items = append(items, PromptSavePDF)
		}
		items = append(items, PromptResubmit, PromptExit)

		prompt := promptui.Select{
			Label: "What next?",
			Items: items,
		}

		_, action, err := prompt.Run()
		if err != nil {
			if promptCancelled(err) {
				return errExit
			}
			return err
		}

		if err := handleAction(ctx, action, client, config, snapshot, logger); err != nil {
			return err
		}
		if action == PromptResubmit {
			return nil
		}
	}
}

// promptCancelled reports whether the user left a prompt with Ctrl+C or Ctrl+D.
func promptCancelled(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}

func handleAction(ctx context.Context, action string, client *analyzer.Client, config *Config, snapshot submission.Snapshot, logger *zap.Logger) error {
	switch action {
	case PromptOpenJob:
		return openJob(snapshot, logger)
	case PromptSavePDF:
		path, err := download.Save(ctx, client.HTTPClient, snapshot.DownloadURL, config.OutputDir)
		if err != nil {
			logger.Error("saving the optimized CV", zap.Error(err))
			return nil
		}
		logger.Info("saved the optimized CV", zap.String("filename", path))
		return nil
	case PromptResubmit:
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func openJob(snapshot submission.Snapshot, logger *zap.Logger) error {
	for {
		items := make([]string, 0, len(snapshot.Jobs)+1)
		for _, job := range snapshot.Jobs {
			items = append(items, view.JobLabel(job))
		}

		jobPrompt := promptui.Select{
			Label: "Choose a job posting and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := jobPrompt.Run()
		if err != nil {
			if promptCancelled(err) {
				return nil
			}
			return err
		}
		if selected == PromptBack && idx == len(snapshot.Jobs) {
			return nil
		}

		job := snapshot.Jobs[idx]
		if job.ApplyLink == "" {
			logger.Warn("the posting has no link", zap.String("job_id", job.ID), zap.String("title", job.Title))
			continue
		}

		if err := view.OpenURL(job.ApplyLink); err != nil {
			logger.Warn("opening the link", zap.Error(err), zap.String("link", job.ApplyLink))
			continue
		}
		logger.Info("opened the posting", zap.String("job_id", job.ID), zap.String("link", job.ApplyLink))
	}
}
