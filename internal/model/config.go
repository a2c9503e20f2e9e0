package model

import "time"

// Config is the process-wide configuration, constructed once at startup and
// treated as immutable afterwards. Historical deployments disagreed on several
// thresholds, so every one of them is a named field here rather than a
// constant buried in a cascade.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Forensics   ForensicsConfig   `yaml:"forensics" mapstructure:"forensics"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	Verify      VerifyConfig      `yaml:"verify" mapstructure:"verify"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Deep        DeepConfig        `yaml:"deep" mapstructure:"deep"`
	Registry    RegistryConfig    `yaml:"registry" mapstructure:"registry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
}

// HTTPConfig controls the fast (non-rendering) fetcher.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool         `yaml:"respect_robots" mapstructure:"respect_robots"`
	RatePerSecond float64      `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int          `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// ForensicsConfig holds the tamper-detection thresholds and fusion weights.
type ForensicsConfig struct {
	RecompressQuality int     `yaml:"recompress_quality" mapstructure:"recompress_quality"`
	EscalateThreshold float64 `yaml:"escalate_threshold" mapstructure:"escalate_threshold"` // residue score above this invokes the deep stage
	HardIndicator     float64 `yaml:"hard_indicator" mapstructure:"hard_indicator"`         // single-scale score above this forces high risk
	HighRiskCutoff    float64 `yaml:"high_risk_cutoff" mapstructure:"high_risk_cutoff"`
	WarningCutoff     float64 `yaml:"warning_cutoff" mapstructure:"warning_cutoff"`
	ResidueWeight     float64 `yaml:"residue_weight" mapstructure:"residue_weight"` // fusion weight when deep signal present
	DeepWeight        float64 `yaml:"deep_weight" mapstructure:"deep_weight"`
	Deadline          time.Duration `yaml:"deadline" mapstructure:"deadline"`
}

// ExtractionConfig holds OCR and field-extraction limits.
type ExtractionConfig struct {
	MaxImageBytes    int           `yaml:"max_image_bytes" mapstructure:"max_image_bytes"`
	MinTextLength    int           `yaml:"min_text_length" mapstructure:"min_text_length"`   // below this, OCR retries alternate modes
	MinWordCount     int           `yaml:"min_word_count" mapstructure:"min_word_count"`     // completeness heuristic floor
	NovelTokenFloor  int           `yaml:"novel_token_floor" mapstructure:"novel_token_floor"` // secondary OCR merge threshold
	SnippetLength    int           `yaml:"snippet_length" mapstructure:"snippet_length"`
	UpscaleFloor     int           `yaml:"upscale_floor" mapstructure:"upscale_floor"` // px; smaller images are doubled
	OCRTimeout       time.Duration `yaml:"ocr_timeout" mapstructure:"ocr_timeout"`
	SecondaryOCRURL  string        `yaml:"secondary_ocr_url" mapstructure:"secondary_ocr_url"` // empty disables engine B
}

// VerifyConfig holds the web-confirmation thresholds.
type VerifyConfig struct {
	MaxCandidates     int           `yaml:"max_candidates" mapstructure:"max_candidates"`
	ShortTextFloor    int           `yaml:"short_text_floor" mapstructure:"short_text_floor"` // fast-fetch text below this escalates to the browser
	TextMatchThreshold float64      `yaml:"text_match_threshold" mapstructure:"text_match_threshold"`
	OCRMatchThreshold  float64      `yaml:"ocr_match_threshold" mapstructure:"ocr_match_threshold"`
	BrowserTimeout    time.Duration `yaml:"browser_timeout" mapstructure:"browser_timeout"`
	NetworkIdleWait   time.Duration `yaml:"network_idle_wait" mapstructure:"network_idle_wait"`
	SettleDelay       time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"` // after DOM-ready when network-idle times out
	Deadline          time.Duration `yaml:"deadline" mapstructure:"deadline"`
}

// LLMConfig configures the structured-extraction provider.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai", "ollama", "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DeepConfig configures the deep manipulation detector. An empty endpoint and
// provider leaves the forensics cascade statistics-only.
type DeepConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"` // remote detector service, e.g. a TruFor sidecar
	Timeout  int    `yaml:"timeout" mapstructure:"timeout"`   // seconds
	UseLLM   bool   `yaml:"use_llm" mapstructure:"use_llm"`   // fall back to the LLM vision opinion when no endpoint
}

// RegistryConfig locates the trusted-issuer table.
type RegistryConfig struct {
	CSVPath string `yaml:"csv_path" mapstructure:"csv_path"`
}

// ConcurrencyConfig sizes the background workers.
type ConcurrencyConfig struct {
	ForensicsWorkers int `yaml:"forensics_workers" mapstructure:"forensics_workers"`
}

// CacheConfig controls the fetched-page cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" mapstructure:"listen_addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns the canonical defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       10 * time.Second,
			UserAgent:     "Veridoc/0.2 (+https://github.com/avashisht/veridoc)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: false,
			RatePerSecond: 2,
			RateBurst:     4,
		},
		Forensics: ForensicsConfig{
			RecompressQuality: 90,
			EscalateThreshold: 0.40,
			HardIndicator:     0.95,
			HighRiskCutoff:    0.65,
			WarningCutoff:     0.40,
			ResidueWeight:     0.3,
			DeepWeight:        0.7,
			Deadline:          30 * time.Second,
		},
		Extraction: ExtractionConfig{
			MaxImageBytes:   10 * 1024 * 1024,
			MinTextLength:   20,
			MinWordCount:    30,
			NovelTokenFloor: 5,
			SnippetLength:   300,
			UpscaleFloor:    2000,
			OCRTimeout:      60 * time.Second,
		},
		Verify: VerifyConfig{
			MaxCandidates:      2,
			ShortTextFloor:     500,
			TextMatchThreshold: 0.70,
			OCRMatchThreshold:  0.65,
			BrowserTimeout:     30 * time.Second,
			NetworkIdleWait:    15 * time.Second,
			SettleDelay:        5 * time.Second,
			Deadline:           90 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   30,
			MaxTokens: 500,
		},
		Deep: DeepConfig{
			Timeout: 20,
		},
		Registry: RegistryConfig{
			CSVPath: "data/issuers.csv",
		},
		Concurrency: ConcurrencyConfig{
			ForensicsWorkers: 2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			MaxUploadBytes:  12 * 1024 * 1024,
			RequestTimeout:  3 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}
