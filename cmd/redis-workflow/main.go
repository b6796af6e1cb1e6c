package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mikesparr/redis-workflow/agent"
	"github.com/mikesparr/redis-workflow/analytics"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/config"
	"github.com/mikesparr/redis-workflow/expression"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	defaults := config.Default()
	flags := cmd.PersistentFlags()
	flags.String("config-file", "", "Path to config file.")
	flags.String("redis-addr", strings.Join(defaults.RedisConfig.Addrs, ","), "comma separated list of redis host:port")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-db", 0, "redis database")
	flags.Int("redis-pool-size", defaults.RedisConfig.PoolSize, "redis connection pool size")
	flags.String("namespace", "", "namespace prepended to every storage key")
	flags.String("storage-impl", string(defaults.StorageType), "implementation of underline storage: redis, sqlite or memory")
	flags.String("sqlite-path", defaults.SqliteConfig.Path, "sqlite database file")
	flags.String("transport-impl", string(defaults.TransportType), "implementation of pub/sub transport: redis or memory")
	flags.String("evaluator", string(defaults.EvaluatorType), "rule expression evaluator: javascript or jsonpath")
	flags.String("channels", "", "comma separated list of channels loaded and started by serve")
	flags.Int("http-port", defaults.HttpPort, "http port for rest endpoints")
	flags.String("audit-file", "", "file receiving the audit trail, disabled when empty")
	flags.Bool("scheduler", defaults.SchedulerConfig.Enabled, "fire delayed actions")
	flags.Duration("scheduler-interval", defaults.SchedulerConfig.PollInterval, "delayed action poll interval")
	flags.String("log-level", defaults.LogLevel, "log level")
	flags.Bool("development", false, "human readable logs")
	return viper.BindPFlags(flags)
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)
	viper.SetEnvPrefix("REDIS_WORKFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if len(configFile) > 0 {
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
	}

	c.cfg.RedisConfig.Addrs = splitList(viper.GetString("redis-addr"))
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.DB = viper.GetInt("redis-db")
	c.cfg.RedisConfig.PoolSize = viper.GetInt("redis-pool-size")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.SqliteConfig.Path = viper.GetString("sqlite-path")
	c.cfg.TransportType = config.TransportType(viper.GetString("transport-impl"))
	c.cfg.EvaluatorType = expression.EvaluatorType(viper.GetString("evaluator"))
	c.cfg.Channels = splitList(viper.GetString("channels"))
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.SchedulerConfig.Enabled = viper.GetBool("scheduler")
	c.cfg.SchedulerConfig.PollInterval = viper.GetDuration("scheduler-interval")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.Development = viper.GetBool("development")
	if auditFile := viper.GetString("audit-file"); len(auditFile) > 0 {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
			FileName:      auditFile,
		}
	} else {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{CollectorType: analytics.NOOP_DATA_COLLECTOR}
	}
	return logger.Init(c.cfg.LogLevel, c.cfg.Development)
}

func splitList(value string) []string {
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); len(item) > 0 {
			list = append(list, item)
		}
	}
	return list
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	if err = agent.Start(cmd.Context()); err != nil {
		_ = agent.Shutdown()
		return err
	}
	logger.Info("redis-workflow started", zap.Stringer("config", c.cfg.Config))
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	err = agent.Shutdown()
	_ = logger.Sync()
	return err
}

// withAgent runs fn against an agent that is built but never started.
func (c *cli) withAgent(fn func(ctx context.Context, a *agent.Agent) error) error {
	a, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	defer a.Shutdown()
	return fn(context.Background(), a)
}

func (c *cli) publish(cmd *cobra.Command, args []string) error {
	data := map[string]any{}
	if len(args) > 2 {
		if err := json.Unmarshal([]byte(args[2]), &data); err != nil {
			return api.WrapError(api.VALIDATION_ERROR, err, "context must be a json object")
		}
	}
	return c.withAgent(func(ctx context.Context, a *agent.Agent) error {
		return a.Service().Publish(ctx, args[0], args[1], data)
	})
}

func (c *cli) stop(cmd *cobra.Command, args []string) error {
	return c.withAgent(func(ctx context.Context, a *agent.Agent) error {
		return a.Service().Stop(ctx, args[0])
	})
}

func (c *cli) importFile(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	return c.withAgent(func(ctx context.Context, a *agent.Agent) error {
		count, err := importDefinitions(ctx, a.Service(), args[0], data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d workflows into %s\n", count, args[0])
		return nil
	})
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:               "redis-workflow",
		Short:             "event driven workflow dispatch over pub/sub channels",
		PersistentPreRunE: c.setupConfig,
		SilenceUsage:      true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "load and start the configured channels and serve the admin api",
			Args:  cobra.NoArgs,
			RunE:  c.run,
		},
		&cobra.Command{
			Use:   "publish <channel> <event> [context-json]",
			Short: "publish an event on a channel",
			Args:  cobra.RangeArgs(2, 3),
			RunE:  c.publish,
		},
		&cobra.Command{
			Use:   "stop <channel>",
			Short: "stop every listener of a channel",
			Args:  cobra.ExactArgs(1),
			RunE:  c.stop,
		},
		&cobra.Command{
			Use:   "import <channel> <file.yaml>",
			Short: "add the workflows defined in a yaml file to a channel",
			Args:  cobra.ExactArgs(2),
			RunE:  c.importFile,
		},
	)
	return root
}

func main() {
	cli := &cli{}
	cmd := newRootCommand(cli)

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
