package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/career-twin/internal/interview"
)

const (
	app = "career-twin"
)

type Config struct {
	App       *AppConfig       `mapstructure:"app"`
	Server    *ServerConfig    `mapstructure:"server"`
	Interview *InterviewConfig `mapstructure:"interview"`
	Storage   *StorageConfig   `mapstructure:"storage"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Listen         string        `mapstructure:"listen"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	RateLimit      int           `mapstructure:"rate-limit"`
	RateWindow     time.Duration `mapstructure:"rate-window"`
}

type InterviewConfig struct {
	Counts            interview.Counts `mapstructure:"counts"`
	CallTimeout       time.Duration    `mapstructure:"call-timeout"`
	MaxUploadSize     int64            `mapstructure:"max-upload-size"`
	AllowedExtensions []string         `mapstructure:"allowed-extensions"`
}

type StorageConfig struct {
	ResumeDir string `mapstructure:"resume-dir"`
	// SessionLog is one of sqlite, redis or none.
	SessionLog string       `mapstructure:"session-log"`
	SQLitePath string       `mapstructure:"sqlite-path"`
	Redis      *RedisConfig `mapstructure:"redis"`
	// Index is one of memory or pgvector.
	Index      string          `mapstructure:"index"`
	Postgres   *PostgresConfig `mapstructure:"postgres"`
	Collection string          `mapstructure:"collection"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password" json:"-"`
	PasswordFile string `mapstructure:"password-file"`
	DB           int    `mapstructure:"db"`
	Prefix       string `mapstructure:"prefix"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn" json:"-"`
	DSNFile string `mapstructure:"dsn-file"`
}

type AIConfig struct {
	// Provider is gemini or openai (any OpenAI compatible endpoint, Groq by default).
	Provider string `mapstructure:"provider"`
	// Embeddings is auto, gemini or hash. auto picks gemini when a Gemini key is available.
	Embeddings string        `mapstructure:"embeddings"`
	Gemini     *GeminiConfig `mapstructure:"gemini"`
	OpenAI     *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key" json:"-"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type OpenAIConfig struct {
	APIKey       string        `mapstructure:"api-key" json:"-"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	BaseURL      string        `mapstructure:"base-url"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "career-twin runs mock interviews against your resume and tracks how you improve",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is career-twin.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("app.name", "Career Twin")
	viper.SetDefault("app.version", "1.0.0")

	viper.SetDefault("server.listen", ":8000")
	viper.SetDefault("server.allowed-origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate-limit", 50)
	viper.SetDefault("server.rate-window", time.Minute)

	viper.SetDefault("interview.counts.hr", interview.DefaultCounts.HR)
	viper.SetDefault("interview.counts.technical", interview.DefaultCounts.Technical)
	viper.SetDefault("interview.counts.behavioral", interview.DefaultCounts.Behavioral)
	viper.SetDefault("interview.call-timeout", interview.DefaultCallTimeout)
	viper.SetDefault("interview.max-upload-size", interview.DefaultMaxUploadSize)
	viper.SetDefault("interview.allowed-extensions", interview.DefaultAllowedExtensions)

	viper.SetDefault("storage.resume-dir", "data/resumes")
	viper.SetDefault("storage.session-log", "sqlite")
	viper.SetDefault("storage.sqlite-path", "data/interviews/sessions.db")
	viper.SetDefault("storage.index", "memory")
	viper.SetDefault("storage.collection", "career_twin_profiles")
	viper.SetDefault("storage.redis.addr", "localhost:6379")
	viper.SetDefault("storage.redis.prefix", "career-twin:session:")
	viper.SetDefault("storage.postgres.dsn", "")

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.embeddings", "auto")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.openai.max-retries", 3)
	viper.SetDefault("ai.openai.timeout", 60*time.Second)
	viper.SetDefault("ai.openai.max-log-length", 200)
}

func initConfig() {
	// A missing .env is the normal case outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	viper.SetEnvPrefix("CAREER_TWIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Defaults and env are enough to run; only an explicit or broken config file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
