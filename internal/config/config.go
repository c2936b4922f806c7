package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for platelog.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Remote     RemoteConfig     `toml:"remote"`
	Credential CredentialConfig `toml:"credential"`
	Artifacts  ArtifactConfig   `toml:"artifacts"`
	Imaging    ImagingConfig    `toml:"imaging"`
	Journal    JournalConfig    `toml:"journal"`
	Timeouts   TimeoutConfig    `toml:"timeouts"`
}

// RemoteConfig identifies the remote repository holding the collection.
type RemoteConfig struct {
	Owner          string `toml:"owner"`
	Repo           string `toml:"repo"`
	Branch         string `toml:"branch"`          // defaults to "main"
	CollectionPath string `toml:"collection_path"` // defaults to "reviews.json"
	MediaDir       string `toml:"media_dir"`       // defaults to "images"

	// Endpoint overrides, used by tests against httptest servers.
	APIBaseURL string `toml:"api_base_url,omitempty"`
	RawBaseURL string `toml:"raw_base_url,omitempty"`
}

// CredentialConfig describes where the encrypted credential blob lives and
// which format it uses.
// This uses a tagged union pattern - the Type field determines the format.
type CredentialConfig struct {
	Type string `toml:"type"` // "xor" (default, legacy) or "age"

	// BlobPath is a local file holding the blob. When empty, the blob is
	// fetched from the remote repository at RemotePath.
	BlobPath   string `toml:"blob_path,omitempty"`
	RemotePath string `toml:"remote_path"` // defaults to "pat.enc.json"
}

// ArtifactConfig selects the media artifact backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant. The collection document always lives on the remote
// repository; only artifacts are pluggable.
type ArtifactConfig struct {
	Type string `toml:"type"` // "github" (default), "s3", "filesystem", or "memory"

	// S3-specific fields (only used when Type == "s3"). When the access
	// key pair is empty, the ambient AWS credential chain is used.
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// ImagingConfig selects the device profile for the ingestion pipeline and
// allows per-field overrides. Zero values fall back to the profile default.
type ImagingConfig struct {
	Profile        string `toml:"profile"` // "desktop" (default) or "constrained"
	MaxWidth       int    `toml:"max_width,omitempty"`
	MaxHeight      int    `toml:"max_height,omitempty"`
	Quality        int    `toml:"quality,omitempty"`     // JPEG quality 1-100
	MinQuality     int    `toml:"min_quality,omitempty"` // floor for the single retry
	ByteBudget     int64  `toml:"byte_budget,omitempty"`
	MaxSourceBytes int64  `toml:"max_source_bytes,omitempty"`
}

// JournalConfig represents configuration for the local operation journal.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// TimeoutConfig bounds the operations that may otherwise never complete.
type TimeoutConfig struct {
	FetchSeconds  int `toml:"fetch_seconds"`  // metadata and document reads
	UploadSeconds int `toml:"upload_seconds"` // large media uploads
	DecodeSeconds int `toml:"decode_seconds"` // image decode
}

// NewConfig creates a Config with the provided remote coordinates and
// default paths under baseDir.
func NewConfig(owner, repo, baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Remote: RemoteConfig{
			Owner:          owner,
			Repo:           repo,
			Branch:         "main",
			CollectionPath: "reviews.json",
			MediaDir:       "images",
		},
		Credential: CredentialConfig{
			Type:       "xor",
			RemotePath: "pat.enc.json",
		},
		Artifacts: ArtifactConfig{Type: "github"},
		Imaging:   ImagingConfig{Profile: "desktop"},
		Journal: JournalConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Timeouts: TimeoutConfig{
			FetchSeconds:  15,
			UploadSeconds: 60,
			DecodeSeconds: 10,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
