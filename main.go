package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohitkumar/flowcall/agent"
	"github.com/mohitkumar/flowcall/analytics"
	"github.com/mohitkumar/flowcall/config"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}

type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "memory", "implementation of underlying storage (memory|redis)")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().Int("redis-pool-size", 0, "redis connection pool size, 0 for client default")
	cmd.Flags().String("namespace", "flowcall", "namespace used in storage")
	cmd.Flags().String("base-url", "", "base url for relative step urls")
	cmd.Flags().Duration("request-timeout", 0, "timeout of each http call, 0 for default")
	cmd.Flags().StringToString("default-header", nil, "header sent with every call, key=value")
	cmd.Flags().Int("history-max", 100, "maximum number of history entries kept")
	cmd.Flags().String("template-style", "braces", "template marker style (braces|dollar)")
	cmd.Flags().String("path-indicator", "$", "indicator prefixing extraction paths")
	cmd.Flags().Bool("strict-paths", false, "require the path indicator on extraction paths")
	cmd.Flags().String("state-source", "", "url returning the external state as a json object")
	cmd.Flags().Duration("state-refresh", 0, "interval of periodic state refresh, 0 disables it")
	cmd.Flags().String("catalog-file", "", "yaml or json endpoint catalog")
	cmd.Flags().Int("worker-capacity", 16, "capacity of the async run queue")
	cmd.Flags().String("analytics-file", "", "file receiving run analytics, empty disables it")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().Bool("development", false, "development logging")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
	}
	viper.SetEnvPrefix("FLOWCALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.PoolSize = viper.GetInt("redis-pool-size")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.BaseURL = viper.GetString("base-url")
	c.cfg.RequestTimeout = viper.GetDuration("request-timeout")
	c.cfg.DefaultHeaders = viper.GetStringMapString("default-header")
	c.cfg.HistoryMax = viper.GetInt("history-max")
	c.cfg.TemplateStyle = viper.GetString("template-style")
	c.cfg.PathIndicator = viper.GetString("path-indicator")
	c.cfg.StrictPaths = viper.GetBool("strict-paths")
	c.cfg.StateSourceURL = viper.GetString("state-source")
	c.cfg.StateRefreshInterval = viper.GetDuration("state-refresh")
	c.cfg.CatalogFile = viper.GetString("catalog-file")
	c.cfg.WorkerCapacity = viper.GetInt("worker-capacity")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.Development = viper.GetBool("development")
	if file := viper.GetString("analytics-file"); file != "" {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{FileName: file, CollectorType: analytics.LOG_FILE_DATA_COLLECTOR}
	}
	if err := logger.Init(c.cfg.LogLevel, c.cfg.Development); err != nil {
		return err
	}
	return c.cfg.Validate()
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	defer func() { _ = logger.Sync() }()
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	if err = agent.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "flowcall",
		Short:   "compose, run and inspect sequences of http calls",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
