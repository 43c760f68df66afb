package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"archie/internal/conversation"
	"archie/internal/gateway/app"
	"archie/internal/gateway/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "archie",
	Short:         "Conversational architecture design from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./archie.yaml)")
	rootCmd.PersistentFlags().Bool("offline", false, "use the deterministic offline provider")
	rootCmd.PersistentFlags().String("store", "", "session store driver (memory, redis, postgres)")
	rootCmd.PersistentFlags().String("weights", "", "scoring weights YAML file")
	rootCmd.PersistentFlags().Duration("call-timeout", 0, "per-call provider timeout")
	rootCmd.PersistentFlags().Bool("json", false, "print JSON output")

	_ = viper.BindPFlag("offline", rootCmd.PersistentFlags().Lookup("offline"))
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("weights", rootCmd.PersistentFlags().Lookup("weights"))
	_ = viper.BindPFlag("call-timeout", rootCmd.PersistentFlags().Lookup("call-timeout"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	serveCmd.Flags().String("port", "5000", "listen port")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))

	addFormFlags(designCmd)
	designCmd.Flags().StringArrayP("message", "m", nil, "refinement message (repeatable)")
	designCmd.Flags().Bool("stdin", false, "read refinement messages from stdin, one per line")
	addFormFlags(blueprintCmd)

	rootCmd.AddCommand(serveCmd, designCmd, blueprintCmd, providersCmd)
}

func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("archie")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("ARCHIE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// loadConfig layers flag, ARCHIE_* and config-file values over the
// process environment.
func loadConfig() *config.Config {
	cfg := config.FromEnv()
	if viper.GetBool("offline") {
		cfg.LLM.Offline = true
	}
	if v := strings.TrimSpace(viper.GetString("store")); v != "" {
		cfg.Store.Driver = conversation.Driver(strings.ToLower(v))
	}
	if v := strings.TrimSpace(viper.GetString("weights")); v != "" {
		cfg.WeightsFile = v
	}
	if d := viper.GetDuration("call-timeout"); d > 0 {
		cfg.LLM.CallTimeout = d
	}
	if viper.IsSet("port") {
		if v := strings.TrimSpace(viper.GetString("port")); v != "" {
			cfg.Port = ":" + strings.TrimPrefix(v, ":")
		}
	}
	return cfg
}

func buildCore(ctx context.Context) (*app.Core, error) {
	return app.Build(ctx, loadConfig())
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.NewFromConfig(loadConfig())
		if err != nil {
			return err
		}
		errCh := make(chan error, 1)
		go func() { errCh <- a.Start() }()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-quit:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Shutdown(ctx)
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List enabled providers and their models",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore(cmd.Context())
		if err != nil {
			return err
		}
		defer core.Close()

		profiles := core.Registry.Profiles()
		if viper.GetBool("json") {
			return printJSON(profiles)
		}
		printProviders(profiles)
		return nil
	},
}
