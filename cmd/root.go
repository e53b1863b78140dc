package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lightcore/internal/config"
	"lightcore/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lightcore",
	Short: "Lightcore - AI chat gateway",
	Long: `Lightcore is the chat gateway behind the Lightcore AI website.
It validates chat messages and proxies them to n8n automation webhooks
with bounded timeouts, response normalization and retry with backoff.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.lightcore")
	}

	// 环境变量设置
	viper.SetEnvPrefix("LIGHTCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	// 请求链路最长为 webhook 超时加重试退避，写超时要盖住整个链路
	viper.SetDefault("server.write_timeout", "120s")

	// Webhook
	viper.SetDefault("webhook.url", "https://n8nprd.aifunbox.com/webhook/lightcoreai")
	viper.SetDefault("webhook.finance_url", "https://n8n.aifunbox.com/webhook/storeai")
	viper.SetDefault("webhook.user_agent", "LightcoreAI-Website/1.0")
	viper.SetDefault("webhook.source", "lightcore-ai-website")

	// Chat
	viper.SetDefault("chat.request_timeout", "30s")
	viper.SetDefault("chat.max_retries", 3)
	viper.SetDefault("chat.retry_delay", "1s")
	viper.SetDefault("chat.max_message_length", 1000)
	viper.SetDefault("chat.max_messages_per_session", 100)
	viper.SetDefault("chat.session_ttl", "30m")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// Redis（留空则关闭会话限额）
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
