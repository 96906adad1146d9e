package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"

	defaultBcryptCost       = 10
	defaultAccessTokenTTL   = 120 * time.Second
	defaultRefreshTokenTTL  = 7 * 24 * time.Hour
	defaultThrottleWindow   = 15 * time.Minute
	defaultCodeDigits       = 7
	defaultStorageTimeout   = 3 * time.Second
	defaultHashQueueTimeout = 2 * time.Second
	defaultDeliveryTimeout  = 10 * time.Second
	defaultMailPort         = 465
	defaultTokenKeyPrefix   = "identity"

	minCodeDigits = 6
	maxCodeDigits = 9
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Mail providers.
const (
	MailProviderSMTP   = "smtp"
	MailProviderPubSub = "pubsub"
	MailProviderLog    = "log"
)

// EnvLocal is the only environment allowed to use the log mail provider.
const EnvLocal = "local"

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int      `json:"port" yaml:"port"`
		MaxRequestBodySize string   `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		AllowOrigins       []string `json:"allowOrigins" yaml:"allowOrigins"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	SecretKey struct {
		Access  string `json:"access" yaml:"access"`
		Refresh string `json:"refresh" yaml:"refresh"`
	} `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	AccountStore StoreConfig `json:"accountStore" yaml:"accountStore"`

	TokenStore StoreConfig `json:"tokenStore" yaml:"tokenStore"`

	Mail *MailConfig `json:"mail" yaml:"mail"`

	// PubSub is used when mail.provider is "pubsub".
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

// AuthConfig holds credential and single-use token settings.
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`

	// HashWorkers bounds concurrent hash/verify calls. Defaults to GOMAXPROCS.
	HashWorkers      int           `json:"hashWorkers" yaml:"hashWorkers"`
	HashQueueTimeout time.Duration `json:"hashQueueTimeout" yaml:"hashQueueTimeout"`

	AccessTokenTTL  time.Duration `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`

	ThrottleWindow time.Duration `json:"throttleWindow" yaml:"throttleWindow"`
	CodeDigits     int           `json:"codeDigits" yaml:"codeDigits"`

	StorageTimeout time.Duration `json:"storageTimeout" yaml:"storageTimeout"`
}

// StoreConfig selects a storage backend.
type StoreConfig struct {
	Backend   string `json:"backend" yaml:"backend"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// MailConfig describes outbound verification and reset messages.
type MailConfig struct {
	Provider string `json:"provider" yaml:"provider"`

	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Secure   bool   `json:"secure" yaml:"secure"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`

	DeliveryTimeout time.Duration `json:"deliveryTimeout" yaml:"deliveryTimeout"`

	VerifyEmailURL   string `json:"verifyEmailUrl" yaml:"verifyEmailUrl"`
	ResetPasswordURL string `json:"resetPasswordUrl" yaml:"resetPasswordUrl"`
}

// PubSubConfig defines the topic mail events are published to.
type PubSubConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	TopicID         string `json:"topicId" yaml:"topicId"`
	CredentialsFile string `json:"credentialsFile" yaml:"credentialsFile"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

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

	configFile, found := findConfigFile(currEnv, searchPaths)
	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// MAIL_VERIFYEMAILURL -> mail.verifyEmailUrl
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func findConfigFile(currEnv string, searchPaths []string) (string, bool) {
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills zero values with the service defaults.
func (cfg *Config) ApplyDefaults() {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	auth := cfg.Auth
	if auth.BcryptCost == 0 {
		auth.BcryptCost = defaultBcryptCost
	}
	if auth.HashWorkers <= 0 {
		auth.HashWorkers = runtime.GOMAXPROCS(0)
	}
	if auth.HashQueueTimeout == 0 {
		auth.HashQueueTimeout = defaultHashQueueTimeout
	}
	if auth.AccessTokenTTL == 0 {
		auth.AccessTokenTTL = defaultAccessTokenTTL
	}
	if auth.RefreshTokenTTL == 0 {
		auth.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if auth.ThrottleWindow == 0 {
		auth.ThrottleWindow = defaultThrottleWindow
	}
	if auth.CodeDigits == 0 {
		auth.CodeDigits = defaultCodeDigits
	}
	if auth.StorageTimeout == 0 {
		auth.StorageTimeout = defaultStorageTimeout
	}

	if cfg.AccountStore.Backend == "" {
		cfg.AccountStore.Backend = BackendPostgres
	}
	if cfg.TokenStore.Backend == "" {
		cfg.TokenStore.Backend = BackendPostgres
	}
	if cfg.TokenStore.KeyPrefix == "" {
		cfg.TokenStore.KeyPrefix = defaultTokenKeyPrefix
	}

	if cfg.Mail == nil {
		cfg.Mail = &MailConfig{}
	}
	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = MailProviderLog
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = defaultMailPort
	}
	if cfg.Mail.DeliveryTimeout == 0 {
		cfg.Mail.DeliveryTimeout = defaultDeliveryTimeout
	}
}

// Validate rejects configurations the service cannot start with.
func (cfg *Config) Validate() error {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return errors.New("secretKey.access and secretKey.refresh must be provided")
	}
	if cfg.SecretKey.Access == cfg.SecretKey.Refresh {
		return errors.New("secretKey.access and secretKey.refresh must differ")
	}

	auth := cfg.Auth
	if auth == nil {
		return errors.New("auth config is missing")
	}
	if auth.AccessTokenTTL <= 0 || auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if auth.ThrottleWindow <= 0 {
		return errors.New("auth.throttleWindow must be positive")
	}
	if auth.CodeDigits < minCodeDigits || auth.CodeDigits > maxCodeDigits {
		return errors.Errorf("auth.codeDigits must be between %d and %d", minCodeDigits, maxCodeDigits)
	}

	if err := validateBackend("accountStore", cfg.AccountStore.Backend, BackendPostgres, BackendMemory); err != nil {
		return err
	}
	if err := validateBackend("tokenStore", cfg.TokenStore.Backend, BackendPostgres, BackendRedis, BackendMemory); err != nil {
		return err
	}
	if cfg.TokenStore.Backend == BackendRedis && (cfg.Redis == nil || cfg.Redis.Addr == "") {
		return errors.New("redis.addr is required for the redis token store")
	}
	if cfg.usesPostgres() && cfg.Postgres == nil {
		return errors.New("postgres config is required for the postgres backend")
	}

	switch cfg.Mail.Provider {
	case MailProviderSMTP:
		if cfg.Mail.Host == "" || cfg.Mail.From == "" {
			return errors.New("mail.host and mail.from are required for the smtp provider")
		}
	case MailProviderPubSub:
		if cfg.PubSub == nil || cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicID == "" {
			return errors.New("pubsub.projectId and pubsub.topicId are required for the pubsub provider")
		}
	case MailProviderLog:
		if cfg.Env.Env != EnvLocal {
			return errors.Errorf("mail provider %q is only allowed when env.env is %q", MailProviderLog, EnvLocal)
		}
	default:
		return errors.Errorf("unknown mail provider: %s", cfg.Mail.Provider)
	}

	return nil
}

func (cfg *Config) usesPostgres() bool {
	return cfg.AccountStore.Backend == BackendPostgres || cfg.TokenStore.Backend == BackendPostgres
}

func validateBackend(section, backend string, allowed ...string) error {
	for _, candidate := range allowed {
		if backend == candidate {
			return nil
		}
	}

	return errors.Errorf("%s.backend %q is not supported", section, backend)
}

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
	if len(current) == 0 {
		return "", nil, false
	}

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
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
