package cmd

import (
	"os"
	"time"

	coreconfig "github.com/AzielCF/az-funnel/core/config"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-funnel",
	Short: "Scripted WhatsApp-style sales conversation",
	Long: `az-funnel hosts a scripted chat that replays a fixed marketing conversation
with typing delays, voice notes and a checkout link at the end.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig)
}

// initEnvConfig resolves flags, environment and defaults into coreconfig.Global.
func initEnvConfig() {
	cfg, err := coreconfig.LoadConfig(viper.GetViper())
	if err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}
	coreconfig.Global = cfg

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.Debugf("[CONFIG] Loaded settings: %v", coreconfig.GetAllSettings())
}

func initFlags() {
	flags := rootCmd.PersistentFlags()

	flags.StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	flags.BoolP("debug", "d", false, "hide or displaying log with --debug <true/false> | example: --debug=true")
	flags.StringP("basic-auth", "b", "", "basic auth for the admin endpoints | -b=yourUsername:yourPassword[,user2:pass2]")
	flags.String("base-path", "", `base path for subpath deployment --base-path <string> | example: --base-path="/funnel"`)
	flags.String("trusted-proxies", "", `trusted proxy IP ranges --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`)

	flags.Int("step-entry-delay", 0, "milliseconds between entering a step and its first message (default: 100)")
	flags.Int("max-sessions", 0, "maximum concurrent conversation sessions (default: 10000)")

	flags.Int("message-workers", 0, "number of event workers --message-workers <number> (default: 8)")
	flags.Int("message-queue-size", 0, "queue size per event worker --message-queue-size <number> (default: 256)")

	bindings := map[string]string{
		"app_port":                   "port",
		"app_debug":                  "debug",
		"app_basic_auth":             "basic-auth",
		"app_base_path":              "base-path",
		"app_trusted_proxies":        "trusted-proxies",
		"funnel_step_entry_delay_ms": "step-entry-delay",
		"funnel_max_sessions":        "max-sessions",
		"message_worker_pool_size":   "message-workers",
		"message_worker_queue_size":  "message-queue-size",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logrus.Fatalf("[CONFIG] cannot bind --%s: %v", flag, err)
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
