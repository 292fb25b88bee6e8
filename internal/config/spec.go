package config

import "time"

// SettingsSpec is the singleton resource configuring daemon-wide
// behavior: OCR, output layout, and symlink generation.
type SettingsSpec struct {
	Output   OutputSettings   `yaml:"output"`
	OCR      OCRSettings      `yaml:"ocr"`
	Symlinks SymlinkSettings  `yaml:"symlinks"`
	Defaults DefaultBucket    `yaml:"defaults"`
	Git      *GitSettings     `yaml:"git,omitempty"`
}

// OutputSettings names the root directory the storage component
// writes categorized artifacts under.
type OutputSettings struct {
	RootDirectory string `yaml:"rootDirectory"`
}

// OCRSettings configures the shared OCR engine handle. Languages are
// joined with "+" at engine construction time; an empty list defaults
// to "eng".
type OCRSettings struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages,omitempty"`
	DPI       int      `yaml:"dpi,omitempty"`
}

// SymlinkSettings toggles whether the pipeline creates cross-reference
// symlinks after storing a document.
type SymlinkSettings struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultBucket names the fallback category and output path template
// used when no rule matches a document.
type DefaultBucket struct {
	Category  string `yaml:"category"`
	Directory string `yaml:"directory"`
	Filename  string `yaml:"filename"`
}

// GitAuthType is a closed sum of supported git authentication modes.
type GitAuthType string

const (
	GitAuthNone  GitAuthType = "none"
	GitAuthToken GitAuthType = "token"
)

// GitAuthSettings describes how the reconciler authenticates against
// a remote. Exactly one of DirectToken/TokenFile/TokenEnvVar is
// consulted, in that priority order, when Type is GitAuthToken.
type GitAuthSettings struct {
	Type        GitAuthType `yaml:"type"`
	DirectToken string      `yaml:"token,omitempty"`
	TokenFile   string      `yaml:"tokenFile,omitempty"`
	TokenEnvVar string      `yaml:"tokenEnvVar,omitempty"`
}

// GitSettings configures the optional reconciler that keeps the
// config directory synced against a remote branch.
type GitSettings struct {
	RemoteURL     string          `yaml:"remoteUrl"`
	Branch        string          `yaml:"branch"`
	Auth          GitAuthSettings `yaml:"auth"`
	SyncInterval  time.Duration   `yaml:"syncInterval"`
}

// VariableTransform is a closed sum of post-extraction string
// transforms applied to a captured variable value.
type VariableTransform string

const (
	TransformNone      VariableTransform = ""
	TransformSlugify   VariableTransform = "slugify"
	TransformLowercase VariableTransform = "lowercase"
	TransformUppercase VariableTransform = "uppercase"
	TransformTrim      VariableTransform = "trim"
)

// VariableSpec declares one named-capture regex extraction, with an
// optional transform and fallback default.
type VariableSpec struct {
	Pattern   string            `yaml:"pattern"`
	Transform VariableTransform `yaml:"transform,omitempty"`
	Default   *string           `yaml:"default,omitempty"`
}

// RuleOutput names the (possibly templated) directory/filename a
// matching rule's documents are stored under, plus zero or more
// templated symlink directories to additionally cross-reference the
// stored document from. Symlinks are only created when the daemon's
// global SymlinkSettings.Enabled is true.
type RuleOutput struct {
	Directory   string   `yaml:"directory"`
	Filename    string   `yaml:"filename"`
	SymlinkDirs []string `yaml:"symlinkDirs,omitempty"`
}

// RuleSpec is one categorization rule: a priority, the condition tree
// that must match the document's extracted text, and the output
// template to apply when it does.
type RuleSpec struct {
	Priority int            `yaml:"priority"`
	Category string         `yaml:"category"`
	Match    MatchCondition `yaml:"match"`
	Output   RuleOutput     `yaml:"output"`
}

// ImportSourceType is a closed sum of discovery source kinds.
type ImportSourceType string

const (
	SourceTypeLocal ImportSourceType = "local"
	SourceTypeIMAP  ImportSourceType = "imap"
)

// FileFilters bounds which files/attachments a source will pick up.
type FileFilters struct {
	Extensions []string `yaml:"extensions,omitempty"`
	MaxSizeMB  int      `yaml:"maxSizeMb,omitempty"`
}

// LocalSourceConfig configures a directory-scanning discovery source.
type LocalSourceConfig struct {
	Path string `yaml:"path"`
}

// IMAPAuthType is a closed sum of IMAP authentication modes.
type IMAPAuthType string

const (
	IMAPAuthPassword IMAPAuthType = "password"
	IMAPAuthOAuth2   IMAPAuthType = "oauth2"
)

// OAuth2ClientConfig names the provider endpoints and credentials used
// for the device-authorization flow.
type OAuth2ClientConfig struct {
	ClientID         string `yaml:"clientId"`
	ClientSecretEnv  string `yaml:"clientSecretEnvVar,omitempty"`
	DeviceAuthURL    string `yaml:"deviceAuthUrl"`
	TokenURL         string `yaml:"tokenUrl"`
	Scopes           []string `yaml:"scopes,omitempty"`
}

// IMAPSourceConfig configures an IMAP-scanning discovery source.
type IMAPSourceConfig struct {
	Host               string              `yaml:"host"`
	Port               int                 `yaml:"port"`
	TLS                bool                `yaml:"tls"`
	Folder             string              `yaml:"folder"`
	Username           string              `yaml:"username,omitempty"`
	AuthType           IMAPAuthType        `yaml:"authType"`
	PasswordFile       string              `yaml:"passwordFile,omitempty"`
	PasswordEnvVar     string              `yaml:"passwordEnvVar,omitempty"`
	OAuth2             *OAuth2ClientConfig `yaml:"oauth2,omitempty"`
	SinceDate          string              `yaml:"sinceDate,omitempty"`
	BatchSize          int                 `yaml:"batchSize,omitempty"`
	PollIntervalSecond int                 `yaml:"pollIntervalSeconds,omitempty"`
}

// ImportSourceSpec is a discriminated union over the two discovery
// source kinds. Exactly one of Local/IMAP is populated, matching
// SourceType.
type ImportSourceSpec struct {
	Type    ImportSourceType   `yaml:"type"`
	Filters FileFilters        `yaml:"filters,omitempty"`
	Local   *LocalSourceConfig `yaml:"local,omitempty"`
	IMAP    *IMAPSourceConfig  `yaml:"imap,omitempty"`
}
