package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1 // server, malformed response or transport
	exitUsage   = 2 // invalid input or configuration
)

var (
	cfgFile string
	verbose bool
	noColor bool

	appCfg *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "idcard-extract",
	Short: "Extract identity-document fields from a photo with a vision-language model",
	Long: `idcard-extract sends a document photo to an OpenAI-compatible vision endpoint
(PaddleOCR-VL, DeepSeek-OCR served through Open WebUI, Ollama or vLLM) and prints
the extracted fields, or a diagnostic explaining why the call failed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		level := slog.LevelWarn
		var out io.Writer = io.Discard
		if verbose {
			level = slog.LevelDebug
			out = os.Stderr
		}
		logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		if err := common.LoadDotEnv(); err != nil {
			return err
		}
		cfg, err := common.LoadConfigFile(cfgFile)
		if err != nil {
			return err
		}
		appCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newModelsCmd())
}

// Execute runs the root command and prints any error that was not already reported.
func Execute() error {
	err := rootCmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		printError("Error: %v\n", err)
	}
	return err
}

// reportedError carries an exit code for a failure whose diagnostic was already printed.
type reportedError struct {
	code int
	err  error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var reported *reportedError
	if errors.As(err, &reported) {
		return reported.code
	}
	if common.HasCode(err, common.CodeConfig) || common.HasCode(err, common.CodeInput) {
		return exitUsage
	}
	if _, ok := llm.AsError(err); ok {
		if llm.KindOf(err) == llm.InvalidInput {
			return exitUsage
		}
		return exitFailure
	}
	// cobra argument and flag errors
	return exitUsage
}
