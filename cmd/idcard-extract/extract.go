package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core/imageconv"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/idcard-extractor/internal/models"
	"github.com/joseph-ayodele/idcard-extractor/internal/record"
)

type extractOptions struct {
	doc           string
	model         string
	endpoint      string
	token         string
	tokenRequired bool
	autoModel     bool
	priority      string
	timeout       time.Duration

	temperature      float64
	topP             float64
	frequencyPenalty float64
	maxTokens        int

	asJSON bool
	clean  bool
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}
	defaults := llm.DefaultSamplingPolicy()

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract fields from one document photo",
		Example: `  idcard-extract extract ktp.jpg
  idcard-extract extract --doc sim --clean sim.png
  idcard-extract extract --endpoint http://localhost:11434/v1 --model deepseek-ocr --json ktp.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.doc, "doc", "d", string(constants.KTP), "document type (ktp, sim, ijazah, ...)")
	f.StringVarP(&opts.model, "model", "m", "", "model id (default from config)")
	f.StringVarP(&opts.endpoint, "endpoint", "e", "", "base URL of the OpenAI-compatible API")
	f.StringVar(&opts.token, "token", "", "API token (default IDCARD_API_TOKEN)")
	f.BoolVar(&opts.tokenRequired, "token-required", false, "fail instead of sending a placeholder token")
	f.BoolVar(&opts.autoModel, "auto-model", false, "choose the model for the document type from detected VRAM")
	f.StringVar(&opts.priority, "priority", string(models.PriorityBalanced), "auto-model priority: balanced, accuracy, speed, memory")
	f.DurationVar(&opts.timeout, "timeout", 0, "request timeout (default from config)")
	f.Float64Var(&opts.temperature, "temperature", defaults.Temperature, "sampling temperature")
	f.Float64Var(&opts.topP, "top-p", defaults.TopP, "nucleus sampling top_p")
	f.Float64Var(&opts.frequencyPenalty, "frequency-penalty", defaults.FrequencyPenalty, "frequency penalty")
	f.IntVar(&opts.maxTokens, "max-tokens", defaults.MaxTokens, "maximum tokens to generate")
	f.BoolVar(&opts.asJSON, "json", false, "print a JSON document with content, record and report")
	f.BoolVar(&opts.clean, "clean", false, "print the normalised record instead of the raw content")
	return cmd
}

// clientConfig layers the command flags over the loaded configuration.
func (o *extractOptions) clientConfig(cmd *cobra.Command) (openai.Config, error) {
	cfg := *appCfg
	f := cmd.Flags()
	if o.endpoint != "" {
		cfg.Endpoint.BaseURL = o.endpoint
	}
	if o.model != "" {
		cfg.Endpoint.Model = o.model
	}
	if o.token != "" {
		cfg.Endpoint.APIToken = o.token
	}
	if f.Changed("token-required") {
		cfg.Endpoint.TokenRequired = o.tokenRequired
	}
	if o.timeout > 0 {
		cfg.Endpoint.Timeout = o.timeout
	}
	if f.Changed("temperature") {
		cfg.Sampling.Temperature = o.temperature
	}
	if f.Changed("top-p") {
		cfg.Sampling.TopP = o.topP
	}
	if f.Changed("frequency-penalty") {
		cfg.Sampling.FrequencyPenalty = o.frequencyPenalty
	}
	if f.Changed("max-tokens") {
		cfg.Sampling.MaxTokens = o.maxTokens
	}
	// A missing token is reported by the client as InvalidInput, not as a config error.
	tokenRequired := cfg.Endpoint.TokenRequired
	cfg.Endpoint.TokenRequired = false
	if err := cfg.Validate(); err != nil {
		return openai.Config{}, err
	}
	cfg.Endpoint.TokenRequired = tokenRequired
	return openai.FromAppConfig(&cfg), nil
}

func runExtract(cmd *cobra.Command, opts *extractOptions, path string) error {
	doc, ok := constants.ParseDocumentType(opts.doc)
	if !ok {
		return common.NewAppError(common.CodeInput, fmt.Sprintf("unknown document type %q", opts.doc), nil)
	}
	clientCfg, err := opts.clientConfig(cmd)
	if err != nil {
		return err
	}
	if opts.autoModel && opts.model == "" {
		priority, err := models.ParsePriority(opts.priority)
		if err != nil {
			return common.NewAppError(common.CodeInput, "invalid --priority", err)
		}
		sel := models.NewSelector(models.DetectVRAMGB(cmd.Context())).Select(doc, priority, false)
		clientCfg.Model = sel.Model.ID
		printInfo("Model: %s (%s)\n", sel.Model.ID, sel.Reason)
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return common.NewAppError(common.CodeInput, "read image", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	mimeType := ""
	switch ext := filepath.Ext(path); {
	case constants.IsImageExt(ext):
		mimeType = constants.MIMEForExt(ext)
	case imageconv.IsHEIC(ext):
		conv := imageconv.NewConverter(appCfg.Image.HEICConverter, "", logger)
		if image, err = conv.ToPNG(ctx, path, ""); err != nil {
			return common.NewAppError(common.CodeInput, "convert HEIC", err)
		}
		mimeType = "image/png"
	}

	client := openai.NewClient(clientCfg, logger)
	res, err := client.ExtractDocument(ctx, image, mimeType, doc)
	if err != nil {
		printDiagnostic(err, client.Endpoint())
		return &reportedError{code: exitCode(err), err: err}
	}

	hint, _ := llm.HintFor(doc)
	switch {
	case opts.asJSON:
		return printJSON(res, doc, record.Process(res.Content, hint))
	case opts.clean:
		printRecord(hint, record.Process(res.Content, hint))
	default:
		fmt.Println(res.Content)
	}
	printInfo("\n%s in %.1fs with %s\n", successMark(), res.Elapsed.Seconds(), res.Model)
	return nil
}

type jsonOutput struct {
	Document  constants.DocumentType `json:"document_type"`
	Model     string                 `json:"model"`
	RequestID string                 `json:"request_id"`
	ElapsedMS int64                  `json:"elapsed_ms"`
	Content   string                 `json:"content"`
	Result    record.Result          `json:"result"`
}

func printJSON(res openai.Extraction, doc constants.DocumentType, rec record.Result) error {
	out, err := json.MarshalIndent(jsonOutput{
		Document:  doc,
		Model:     res.Model,
		RequestID: res.RequestID,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Content:   res.Content,
		Result:    rec,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
