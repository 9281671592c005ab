package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Provider names accepted in llm.provider.
const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderAzure   = "azure"
)

// UserConfig is the front-end owned configuration stored as config.json.
//
// JSON layout (all keys optional on disk, missing keys keep their defaults):
//
//	{
//	  "aws": {
//	    "region": "us-east-1",
//	    "credentials": {"accessKeyId": "", "secretAccessKey": ""},
//	    "bedrock": {"modelId": "...", "maxTokens": 4096, ...}
//	  },
//	  "google": {"apiKey": "", "model": "gemini-pro", "endpoint": "..."},
//	  "azure": {"apiKey": "", "endpoint": "", "model": "", "stream": true},
//	  "chat": {"maxHistoryLength": 10},
//	  "llm": {"provider": "bedrock"}
//	}
type UserConfig struct {
	AWS    AWSConfig    `json:"aws"`
	Google GoogleConfig `json:"google"`
	Azure  AzureConfig  `json:"azure"`
	Chat   ChatConfig   `json:"chat"`
	LLM    LLMConfig    `json:"llm"`
}

// AWSConfig holds region, optional static credentials and Bedrock settings.
type AWSConfig struct {
	Region      string         `json:"region"`
	Credentials AWSCredentials `json:"credentials"`
	Bedrock     BedrockConfig  `json:"bedrock"`
}

// AWSCredentials are optional; when either field is empty the app falls back
// to AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY.
type AWSCredentials struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// BedrockConfig configures Anthropic models on Bedrock.
type BedrockConfig struct {
	ModelID          string   `json:"modelId"`
	MaxTokens        int      `json:"maxTokens"`
	Temperature      float64  `json:"temperature"`
	TopP             float64  `json:"topP"`
	StopSequences    []string `json:"stopSequences"`
	AnthropicVersion string   `json:"anthropicVersion"`
	Endpoint         string   `json:"endpoint,omitempty"`
}

// GoogleConfig configures the Gemini provider.
type GoogleConfig struct {
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint,omitempty"`
}

// AzureConfig configures the Azure OpenAI provider.
type AzureConfig struct {
	APIKey   string `json:"apiKey"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
}

// ChatConfig controls chat history handling.
type ChatConfig struct {
	// MaxHistoryLength is the number of most recent messages sent to the model.
	// Zero or negative sends the whole conversation.
	MaxHistoryLength int `json:"maxHistoryLength"`
}

// LLMConfig selects the active provider.
type LLMConfig struct {
	Provider string `json:"provider"`
}

// ErrUnknownProvider is returned by Validate for an unsupported llm.provider.
var ErrUnknownProvider = errors.New("unknown llm provider")

// DefaultUserConfig returns the configuration used when no file exists.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		AWS: AWSConfig{
			Region: "us-east-1",
			Bedrock: BedrockConfig{
				ModelID:          "anthropic.claude-3-sonnet-20240229-v1:0",
				MaxTokens:        4096,
				Temperature:      0.7,
				TopP:             0.9,
				StopSequences:    []string{},
				AnthropicVersion: "bedrock-2023-05-31",
			},
		},
		Google: GoogleConfig{
			Model: "gemini-pro",
		},
		Azure: AzureConfig{
			Stream: true,
		},
		Chat: ChatConfig{
			MaxHistoryLength: 10,
		},
		LLM: LLMConfig{
			Provider: ProviderBedrock,
		},
	}
}

// Clone returns a deep copy.
func (c *UserConfig) Clone() *UserConfig {
	clone := *c
	clone.AWS.Bedrock.StopSequences = append([]string(nil), c.AWS.Bedrock.StopSequences...)
	if clone.AWS.Bedrock.StopSequences == nil {
		clone.AWS.Bedrock.StopSequences = []string{}
	}
	return &clone
}

// Validate checks fields the providers cannot work around.
func (c *UserConfig) Validate() error {
	switch c.LLM.Provider {
	case ProviderBedrock, ProviderGemini, ProviderAzure:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLM.Provider)
	}
	if c.AWS.Bedrock.MaxTokens < 0 {
		return fmt.Errorf("aws.bedrock.maxTokens must not be negative")
	}
	return nil
}

// MergeUserConfig overlays the JSON document data onto base and returns the result.
// Nested objects merge key by key; arrays and scalars replace. base is not modified.
func MergeUserConfig(base *UserConfig, data []byte) (*UserConfig, error) {
	merged := base.Clone()
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}
	if merged.AWS.Bedrock.StopSequences == nil {
		merged.AWS.Bedrock.StopSequences = []string{}
	}
	return merged, nil
}

// LoadUserConfig reads path and merges it over the defaults.
//
// It never fails: if the file cannot be read or parsed, the defaults are
// written to path (best effort) and returned.
// The returned error reports why the defaults were used; it is nil when the
// file was loaded.
func LoadUserConfig(path string) (*UserConfig, error) {
	if path == "" {
		path = UserConfigPath()
	}

	data, err := os.ReadFile(path)
	if err == nil {
		var cfg *UserConfig
		cfg, err = MergeUserConfig(DefaultUserConfig(), data)
		if err == nil {
			return cfg, nil
		}
	}

	defaults := DefaultUserConfig()
	if writeErr := SaveUserConfig(defaults, path); writeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to write default config: %w", writeErr))
	}
	return defaults, err
}

// SaveUserConfig writes cfg as indented JSON using a temp file + rename.
func SaveUserConfig(cfg *UserConfig, path string) error {
	if path == "" {
		path = UserConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Set restrictive permissions (API keys are sensitive)
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *UserConfig) Redacted() *UserConfig {
	r := c.Clone()
	r.AWS.Credentials.SecretAccessKey = redact(r.AWS.Credentials.SecretAccessKey)
	r.Google.APIKey = redact(r.Google.APIKey)
	r.Azure.APIKey = redact(r.Azure.APIKey)
	return r
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
