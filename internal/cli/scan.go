package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avashisht/veridoc/internal/model"
	"github.com/avashisht/veridoc/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON      string
	timeout      time.Duration
	userAgent    string
	noCache      bool
	llmEnabled   bool
	llmProvider  string
	llmModel     string
	deepEndpoint string
	registryCSV  string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Scan a certificate image and generate an authenticity report",
	Long: `Scan runs a single certificate image through the full pipeline:
- Forensic tamper analysis of the image itself
- OCR and structured extraction of the certificate fields
- Web verification against the issuing platform

Example:
  veridoc scan certificate.png
  veridoc scan certificate.jpg --json report.json
  veridoc scan certificate.png --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Output flags
	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")

	// HTTP flags
	scanCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall scan timeout (verification may render pages in a headless browser)")
	scanCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent override")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the fetched-page cache (force fresh fetches)")

	// LLM flags
	scanCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM field structuring and deep-forensics fallback")
	scanCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	scanCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")

	// Collaborator flags
	scanCmd.Flags().StringVar(&deepEndpoint, "deep-endpoint", "", "remote deep-forensics service URL")
	scanCmd.Flags().StringVar(&registryCSV, "registry", "", "trusted-issuer CSV path (adds to the built-in table)")
}

func runScan(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	doc := model.Document{
		Bytes:     data,
		MediaType: http.DetectContentType(data),
		Filename:  filepath.Base(path),
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s (%d bytes, %s)\n", path, doc.Size(), doc.MediaType)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	// Build configuration from flags
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = !noCache
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if deepEndpoint != "" {
		cfg.Deep.Endpoint = deepEndpoint
	}
	if registryCSV != "" {
		cfg.Registry.CSVPath = registryCSV
	}

	// Configure LLM if enabled
	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
		cfg.Deep.UseLLM = cfg.Deep.Endpoint == ""

		// Get API key from environment
		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			baseURL := os.Getenv("OLLAMA_BASE_URL")
			if baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	} else {
		cfg.LLM.Provider = ""
	}

	// Create pipeline
	p := pipeline.NewPipeline(cfg)
	p.SetVerbose(verbose)
	defer p.Close()

	report, err := p.Process(ctx, doc)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Forensics: %s\n", report.Forensics.Status)
		fmt.Fprintf(os.Stderr, "✓ Extracted fields for %q\n", report.Extraction.CandidateName)
		fmt.Fprintf(os.Stderr, "✓ Verification: %s (%.0f%%)\n", report.Verification.Method, report.Verification.Confidence*100)
		fmt.Fprintf(os.Stderr, "✓ Verdict: %s\n", report.FinalVerdict)
		fmt.Fprintln(os.Stderr)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if outJSON == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(outJSON, out, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outJSON)
	}
	return nil
}
