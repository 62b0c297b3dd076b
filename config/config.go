package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	OSS          OSSConfig          `mapstructure:"oss"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Email        EmailConfig        `mapstructure:"email"`
	Stripe       StripeConfig       `mapstructure:"stripe"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	AI           AIConfig           `mapstructure:"ai"`
	Knowledge    KnowledgeConfig    `mapstructure:"knowledge"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	FrontendURL   string `mapstructure:"frontend_url"`
	// "<plan>_<period>" -> Stripe price id，如 fluency_builder_monthly
	PriceIDs map[string]string `mapstructure:"price_ids"`
}

type QueueConfig struct {
	SummaryQueue string `mapstructure:"summary_queue"`
	MaxWorkers   int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SubscriptionConfig struct {
	Plans map[string]PlanConfig `mapstructure:"plans"`
}

// PlanConfig 套餐静态配置，配额为每个计费周期的额度，-1 表示不限量
type PlanConfig struct {
	DisplayName      string   `mapstructure:"display_name"`
	MonthlyPrice     float64  `mapstructure:"monthly_price"`
	AnnualPrice      float64  `mapstructure:"annual_price"`
	PracticeSessions int      `mapstructure:"practice_sessions"`
	Assessments      int      `mapstructure:"assessments"`
	Features         []string `mapstructure:"features"`
}

type AIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	APIURL         string `mapstructure:"api_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type KnowledgeConfig struct {
	Docs []KnowledgeDoc `mapstructure:"docs"`
}

// KnowledgeDoc AI 问答知识库文档（启动时加载，运行期只读）
type KnowledgeDoc struct {
	ID      string   `mapstructure:"id"`
	Title   string   `mapstructure:"title"`
	Content string   `mapstructure:"content"`
	Tags    []string `mapstructure:"tags"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 未配置套餐时使用内置默认档位
	if len(cfg.Subscription.Plans) == 0 {
		cfg.Subscription.Plans = DefaultPlans()
	}

	return &cfg, nil
}

// DefaultPlans 内置三档套餐，try_learn 为免费档
func DefaultPlans() map[string]PlanConfig {
	return map[string]PlanConfig{
		"try_learn": {
			DisplayName:      "Try & Learn",
			MonthlyPrice:     0,
			AnnualPrice:      0,
			PracticeSessions: 3,
			Assessments:      1,
			Features:         []string{"basic_conversation", "progress_tracking"},
		},
		"fluency_builder": {
			DisplayName:      "Fluency Builder",
			MonthlyPrice:     19.99,
			AnnualPrice:      199.99,
			PracticeSessions: 30,
			Assessments:      2,
			Features:         []string{"basic_conversation", "progress_tracking", "learning_plan", "session_summary"},
		},
		"team_mastery": {
			DisplayName:      "Team Mastery",
			MonthlyPrice:     39.99,
			AnnualPrice:      399.99,
			PracticeSessions: -1,
			Assessments:      -1,
			Features:         []string{"basic_conversation", "progress_tracking", "learning_plan", "session_summary", "priority_support"},
		},
	}
}
