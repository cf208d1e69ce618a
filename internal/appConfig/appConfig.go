package appConfig

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"glbackup/internal/ext"
	"glbackup/internal/gitlab"
	"glbackup/internal/offsite"
	"gopkg.in/yaml.v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ConfigFileName      = "glbackup.yaml"
	DotEnvFileName      = ".env"
	DefaultGitLabURL    = "https://gitlab.com"
	DefaultBackupRoot   = "backups"
	GroupIDSeparator    = ";"
	DefaultMirrorEngine = "git"
)

type AppConfig struct {
	GitLab       gitlab.GitLabConfig `yaml:"gitlab"`
	BackupRoot   string              `yaml:"backupRoot"`
	Mode         string              `yaml:"mode"`         // snapshot or mirror, prompted for when empty
	MirrorEngine string              `yaml:"mirrorEngine"` // git or go-git
	MetricsFile  string              `yaml:"metricsFile"`  // Prometheus textfile written after the run
	S3           offsite.S3Config    `yaml:"s3"`

	// Token is resolved from the environment, never from the file.
	Token string `yaml:"-"`
}

// Overrides are values given on the command line. Empty fields are ignored.
type Overrides struct {
	ConfigFile   string
	Mode         string
	Groups       string
	BackupRoot   string
	MirrorEngine string
}

func Default() *AppConfig {
	return &AppConfig{
		GitLab: gitlab.GitLabConfig{
			URL:                  DefaultGitLabURL,
			EnvTokenVariableName: gitlab.DefaultTokenEnvVar,
			TokenType:            gitlab.TokenTypePrivate,
		},
		BackupRoot:   DefaultBackupRoot,
		MirrorEngine: DefaultMirrorEngine,
	}
}

// Load layers defaults, the YAML file, .env, the environment and the overrides, in that order.
func Load(overrides Overrides) (*AppConfig, error) {
	config := Default()

	configFilePath, err := findConfigFile(overrides.ConfigFile)
	if err != nil {
		return nil, err
	}
	if configFilePath != "" {
		if err := config.readFile(configFilePath); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(DotEnvFileName); err != nil {
		return nil, err
	}
	config.applyEnv(os.Getenv)
	config.applyOverrides(overrides)

	config.Token = config.GitLab.RetrieveTokenFromEnv()
	config.BackupRoot = ext.ExpandTilde(config.BackupRoot)
	config.MetricsFile = ext.ExpandTilde(config.MetricsFile)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findConfigFile looks in the current directory and then the home directory.
// An explicitly given file must exist; otherwise a missing file is not an error.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	candidates := []string{filepath.Join(".", ConfigFileName)}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ConfigFileName))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func (config *AppConfig) readFile(configFilePath string) error {
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return fmt.Errorf("could not unmarshal config file %s: %w", configFilePath, err)
	}
	return nil
}

// loadDotEnv exports the variables of an optional .env file. Variables already set in the environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("could not load %s: %w", path, err)
}

func (config *AppConfig) applyEnv(getenv func(string) string) {
	set := func(target *string, name string) {
		if value := strings.TrimSpace(getenv(name)); value != "" {
			*target = value
		}
	}
	set(&config.GitLab.URL, "GITLAB_URL")
	set(&config.BackupRoot, "BACKUP_BASE_DIR")
	set(&config.Mode, "BACKUP_MODE")
	set(&config.MirrorEngine, "BACKUP_MIRROR_ENGINE")
	set(&config.MetricsFile, "BACKUP_METRICS_FILE")
	set(&config.S3.Bucket, "BACKUP_S3_BUCKET")
	set(&config.S3.Region, "BACKUP_S3_REGION")
	set(&config.S3.Endpoint, "BACKUP_S3_ENDPOINT")
	set(&config.S3.Prefix, "BACKUP_S3_PREFIX")

	if tokenType := strings.TrimSpace(getenv("GITLAB_TOKEN_TYPE")); tokenType != "" {
		config.GitLab.TokenType = gitlab.TokenType(strings.ToLower(tokenType))
	}
	if groups := getenv("GITLAB_GROUP_IDS"); strings.TrimSpace(groups) != "" {
		config.GitLab.Groups = ParseGroupIDs(groups)
	}
	if rate, err := strconv.Atoi(strings.TrimSpace(getenv("GITLAB_RATE_LIMIT"))); err == nil {
		config.GitLab.RateLimitPerSecond = rate
	}
}

func (config *AppConfig) applyOverrides(overrides Overrides) {
	config.Mode = ext.FirstNonEmpty(overrides.Mode, config.Mode)
	config.BackupRoot = ext.FirstNonEmpty(overrides.BackupRoot, config.BackupRoot)
	config.MirrorEngine = ext.FirstNonEmpty(overrides.MirrorEngine, config.MirrorEngine)
	if strings.TrimSpace(overrides.Groups) != "" {
		config.GitLab.Groups = ParseGroupIDs(overrides.Groups)
	}
}

// ParseGroupIDs splits a semicolon delimited list, dropping blanks and repeated IDs.
func ParseGroupIDs(raw string) []string {
	ids := lo.Map(strings.Split(raw, GroupIDSeparator), func(id string, _ int) string {
		return strings.TrimSpace(id)
	})
	return lo.Uniq(lo.Compact(ids))
}

func (config *AppConfig) Validate() error {
	if config.Token == "" {
		return fmt.Errorf("GitLab token is not set, export %s or add it to %s", ext.DefaultValue(config.GitLab.EnvTokenVariableName, gitlab.DefaultTokenEnvVar), DotEnvFileName)
	}
	if config.GitLab.ServerURL() == "" {
		return errors.New("GitLab URL is not set")
	}
	if err := config.GitLab.TokenType.Validate(); err != nil {
		return err
	}
	config.GitLab.Groups = lo.Uniq(lo.Compact(lo.Map(config.GitLab.Groups, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))
	if len(config.GitLab.Groups) == 0 {
		return errors.New("no GitLab groups configured, set GITLAB_GROUP_IDS (e.g. \"248;240\")")
	}
	if config.GitLab.RateLimitPerSecond < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", config.GitLab.RateLimitPerSecond)
	}
	if config.BackupRoot == "" {
		return errors.New("backup root directory is not set")
	}
	return nil
}
