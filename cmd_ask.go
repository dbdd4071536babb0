package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voxquery/internal/bootstrap"
	"voxquery/internal/domain"
)

var (
	askAudio  string
	askDryRun bool

	// Disabled automatically when the stream is not a terminal.
	label = color.New(color.FgCyan, color.Bold)
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Convert one question into a formal query and execute it",
	Long: `Runs a single question through every stage without the interactive
interface. The question comes from the arguments, or from an audio file
given with --audio.

Example:
  voxquery ask show all red products
  voxquery ask --audio question.wav --dry-run`,
	Args: func(cmd *cobra.Command, args []string) error {
		if askAudio == "" && len(args) == 0 {
			return fmt.Errorf("requires a question or --audio")
		}
		if askAudio != "" && len(args) > 0 {
			return fmt.Errorf("--audio cannot be combined with a question")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), strings.Join(args, " "))
	},
}

func runAsk(ctx context.Context, out io.Writer, status io.Writer, question string) error {
	services, err := bootstrap.Build(cfg, &cliSink{out: status, logger: logger}, logger)
	if err != nil {
		return err
	}
	controller := services.Controller

	if askAudio != "" {
		if err := controller.SetMode(domain.InputModeVoice); err != nil {
			return err
		}
		question, err = controller.TranscribeFile(ctx, askAudio)
		if err != nil {
			return err
		}
		fmt.Fprintf(status, "%s %s\n", label.Sprint("transcript:"), question)
	}

	query, err := controller.SubmitIntent(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, query)
	if askDryRun {
		return nil
	}

	result, err := controller.SubmitFormalQuery(ctx, query)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, result)
	return nil
}

// cliSink reports capture progress on the status stream. Failures are
// returned by the controller calls, so they are only logged here.
type cliSink struct {
	out    io.Writer
	logger *zap.Logger
}

func (s *cliSink) SessionChanged(snapshot domain.Snapshot) {
	s.logger.Debug("session changed", zap.Stringer("stage", snapshot.Current))
}

func (s *cliSink) CaptureChanged(_ domain.CaptureStatus, reason domain.CaptureReason) {
	if reason == domain.CaptureReasonTranscribing {
		fmt.Fprintln(s.out, label.Sprint("Transcribing..."))
	}
}

func (s *cliSink) Failure(code domain.ErrorCode, detail string) {
	s.logger.Warn("stage failed", zap.String("code", string(code)), zap.String("detail", detail))
}
