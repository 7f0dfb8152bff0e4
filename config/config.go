// Package config loads the service configuration from an optional YAML file
// overlaid with FUNDRAISER_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/jacentio/fundraiser/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FUNDRAISER_"

const defaultPath = "."

type Config struct {
	Log     Log     `json:"log" yaml:"log"`
	AWS     AWS     `json:"aws" yaml:"aws"`
	Tables  Tables  `json:"tables" yaml:"tables"`
	Indexes Indexes `json:"indexes" yaml:"indexes"`
	Limits  Limits  `json:"limits" yaml:"limits"`
	Media   Media   `json:"media" yaml:"media"`
	QR      QR      `json:"qr" yaml:"qr"`
	Dev     Dev     `json:"dev" yaml:"dev"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

type AWS struct {
	Region string `json:"region" yaml:"region"`
	// Endpoint overrides the DynamoDB endpoint (DynamoDB Local).
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// Tables holds table names; empty names fall back to store defaults.
type Tables struct {
	Accounts        string `json:"accounts" yaml:"accounts"`
	Profiles        string `json:"profiles" yaml:"profiles"`
	Catalogs        string `json:"catalogs" yaml:"catalogs"`
	Campaigns       string `json:"campaigns" yaml:"campaigns"`
	Orders          string `json:"orders" yaml:"orders"`
	Shares          string `json:"shares" yaml:"shares"`
	Invites         string `json:"invites" yaml:"invites"`
	SharedCampaigns string `json:"sharedCampaigns" yaml:"sharedCampaigns"`
}

// Indexes holds secondary index names; empty names fall back to store defaults.
type Indexes struct {
	Owner         string `json:"owner" yaml:"owner"`
	Public        string `json:"public" yaml:"public"`
	Profile       string `json:"profile" yaml:"profile"`
	Catalog       string `json:"catalog" yaml:"catalog"`
	UnitCampaign  string `json:"unitCampaign" yaml:"unitCampaign"`
	TargetAccount string `json:"targetAccount" yaml:"targetAccount"`
	Creator       string `json:"creator" yaml:"creator"`
}

type Limits struct {
	MaxSharedCampaigns   int           `json:"maxSharedCampaigns" yaml:"maxSharedCampaigns"`
	CascadeMaxIterations int           `json:"cascadeMaxIterations" yaml:"cascadeMaxIterations"`
	InviteTTL            time.Duration `json:"inviteTTL" yaml:"inviteTTL"`
}

type Media struct {
	// BucketURL is a gocloud.dev blob URL, e.g. s3://bucket?region=us-east-1.
	BucketURL  string        `json:"bucketURL" yaml:"bucketURL"`
	PresignTTL time.Duration `json:"presignTTL" yaml:"presignTTL"`
}

type QR struct {
	Size          int    `json:"size" yaml:"size"`
	RecoveryLevel string `json:"recoveryLevel" yaml:"recoveryLevel"`
	RedeemBaseURL string `json:"redeemBaseURL" yaml:"redeemBaseURL"`
}

type Dev struct {
	Listen  string `json:"listen" yaml:"listen"`
	DataDir string `json:"dataDir" yaml:"dataDir"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Log: Log{Level: "info"},
		Limits: Limits{
			MaxSharedCampaigns:   50,
			CascadeMaxIterations: 1000,
			InviteTTL:            14 * 24 * time.Hour,
		},
		Media: Media{
			BucketURL:  "mem://",
			PresignTTL: 15 * time.Minute,
		},
		QR: QR{
			Size:          256,
			RecoveryLevel: "M",
			RedeemBaseURL: "http://localhost:5173/accept-invite",
		},
		Dev: Dev{Listen: ":8080"},
	}
}

// Store returns the table layout for the storage layer.
func (c *Config) Store() store.Config {
	sc := store.Config{
		AccountsTable:        c.Tables.Accounts,
		ProfilesTable:        c.Tables.Profiles,
		CatalogsTable:        c.Tables.Catalogs,
		CampaignsTable:       c.Tables.Campaigns,
		OrdersTable:          c.Tables.Orders,
		SharesTable:          c.Tables.Shares,
		InvitesTable:         c.Tables.Invites,
		SharedCampaignsTable: c.Tables.SharedCampaigns,
		OwnerIndex:           c.Indexes.Owner,
		PublicIndex:          c.Indexes.Public,
		ProfileIndex:         c.Indexes.Profile,
		CatalogIndex:         c.Indexes.Catalog,
		UnitCampaignIndex:    c.Indexes.UnitCampaign,
		TargetAccountIndex:   c.Indexes.TargetAccount,
		CreatorIndex:         c.Indexes.Creator,
	}
	sc.Validate()
	return sc
}

// Load reads <env>.yaml from the first search path containing it, then
// applies FUNDRAISER_* environment variables. The file is optional; Lambda
// deployments configure everything through the environment.
func Load(currEnv string, configPath ...string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := k.Load(file.Provider(candidate), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read %s config failed", currEnv)
		}
		break
	}

	existing := k.Raw()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, v string) (string, any) {
			// FUNDRAISER_TABLES_SHAREDCAMPAIGNS -> tables.sharedCampaigns
			return canonicalizeEnvKey(strings.TrimPrefix(key, EnvPrefix), existing), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	if cfg.Limits.MaxSharedCampaigns <= 0 {
		return nil, errors.Errorf("limits.maxSharedCampaigns must be positive, got %d", cfg.Limits.MaxSharedCampaigns)
	}
	if cfg.Limits.InviteTTL <= 0 {
		return nil, errors.Errorf("limits.inviteTTL must be positive, got %s", cfg.Limits.InviteTTL)
	}
	return cfg, nil
}

// canonicalizeEnvKey turns an env key into a koanf path, reusing the spelling
// of keys already loaded from YAML so both sources address the same field.
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}
		child, _ := value.(map[string]any)
		return key, child, true
	}
	return "", nil, false
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
