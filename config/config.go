package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings. Values load from an
// optional YAML file first; environment variables override file values so
// deployments keep secrets out of the file.
type Config struct {
	Discord       DiscordConfig       `yaml:"discord"`
	Sheets        SheetsConfig        `yaml:"sheets"`
	Observability ObservabilityConfig `yaml:"observability"`
	Tiers         TiersConfig         `yaml:"tiers"`
}

// DiscordConfig holds Discord configuration.
type DiscordConfig struct {
	Token         string `yaml:"token" validate:"required"`
	ApplicationID string `yaml:"application_id" validate:"required"`
	// GuildID scopes command registration to one guild. Empty means
	// global registration, which Discord propagates slowly.
	GuildID      string   `yaml:"guild_id"`
	AdminUserIDs []string `yaml:"admin_user_ids"`
}

// SheetsConfig holds Google Sheets service-account configuration.
type SheetsConfig struct {
	SpreadsheetID       string `yaml:"spreadsheet_id" validate:"required"`
	ServiceAccountEmail string `yaml:"service_account_email" validate:"required,email"`
	PrivateKey          string `yaml:"private_key" validate:"required"`
	RequestsPerMinute   int    `yaml:"requests_per_minute"`
}

// ObservabilityConfig holds configuration for observability components.
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	LogLevel       string `yaml:"log_level"`
}

// TierRoles configures one tier's gating roles and the channel members of
// that tier are redirected to.
type TierRoles struct {
	RoleIDs     []string `yaml:"role_ids" validate:"required,min=1"`
	ChannelLink string   `yaml:"channel_link"`
}

// TiersConfig holds the role mapping for all three tiers.
type TiersConfig struct {
	TwoGTD TierRoles `yaml:"2gtd"`
	GTD    TierRoles `yaml:"gtd"`
	FCFS   TierRoles `yaml:"fcfs"`
	// OverrideRole grants stacking into the FCFS pool on top of a
	// guaranteed tier.
	OverrideRole string `yaml:"override_role"`
}

// Production defaults for the tier role mapping. A config file or
// environment override replaces them wholesale.
var defaultTiers = TiersConfig{
	TwoGTD: TierRoles{
		RoleIDs:     []string{"1334873841780002937"},
		ChannelLink: "https://discord.com/channels/1282268775709802568/1437876379982237766",
	},
	GTD: TierRoles{
		RoleIDs: []string{
			"1334873106854187008",
			"1360990505021870144",
			"1405560532223922287",
			"1362770935886774284",
			"1407649035657019463",
			"1284341434564083763",
		},
		ChannelLink: "https://discord.com/channels/1282268775709802568/1437876707502592143",
	},
	FCFS: TierRoles{
		RoleIDs: []string{
			"1334873797085626398",
			"1408402916452208702",
			"1411717220605886616",
		},
		ChannelLink: "https://discord.com/channels/1282268775709802568/1437876834476884100",
	},
	OverrideRole: "1412995630181118010",
}

// Production admins allowed to run stats/export.
var defaultAdminUserIDs = []string{
	"1282269911474093571",
	"1305572470112350219",
}

// LoadConfig reads the YAML file at path (skipped when absent), applies
// environment overrides and defaults, and validates the result. A .env
// file in the working directory is honored if present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Discord.Token, "DISCORD_TOKEN")
	overrideString(&c.Discord.ApplicationID, "DISCORD_CLIENT_ID")
	overrideString(&c.Discord.GuildID, "GUILD_ID")
	if v := os.Getenv("ADMIN_USER_IDS"); v != "" {
		c.Discord.AdminUserIDs = splitList(v)
	}

	overrideString(&c.Sheets.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	overrideString(&c.Sheets.ServiceAccountEmail, "GOOGLE_SERVICE_ACCOUNT_EMAIL")
	if v := os.Getenv("GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY"); v != "" {
		// Deployment environments store the PEM with literal \n escapes.
		c.Sheets.PrivateKey = strings.ReplaceAll(v, `\n`, "\n")
	}
	if v := os.Getenv("SHEETS_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sheets.RequestsPerMinute = n
		}
	}

	overrideString(&c.Observability.MetricsAddress, "METRICS_ADDRESS")
	overrideString(&c.Observability.LogLevel, "LOG_LEVEL")

	overrideString(&c.Tiers.OverrideRole, "OVERRIDE_ROLE_ID")
	overrideTier(&c.Tiers.TwoGTD, "TIER_2GTD")
	overrideTier(&c.Tiers.GTD, "TIER_GTD")
	overrideTier(&c.Tiers.FCFS, "TIER_FCFS")
}

func (c *Config) applyDefaults() {
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if len(c.Discord.AdminUserIDs) == 0 {
		c.Discord.AdminUserIDs = defaultAdminUserIDs
	}
	if len(c.Tiers.TwoGTD.RoleIDs) == 0 {
		c.Tiers.TwoGTD = defaultTiers.TwoGTD
	}
	if len(c.Tiers.GTD.RoleIDs) == 0 {
		c.Tiers.GTD = defaultTiers.GTD
	}
	if len(c.Tiers.FCFS.RoleIDs) == 0 {
		c.Tiers.FCFS = defaultTiers.FCFS
	}
	if c.Tiers.OverrideRole == "" {
		c.Tiers.OverrideRole = defaultTiers.OverrideRole
	}
}

func overrideString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideTier(target *TierRoles, prefix string) {
	if v := os.Getenv(prefix + "_ROLE_IDS"); v != "" {
		target.RoleIDs = splitList(v)
	}
	if v := os.Getenv(prefix + "_CHANNEL_LINK"); v != "" {
		target.ChannelLink = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
