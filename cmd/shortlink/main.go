package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/app"
	"github.com/joshdurbin/shortlink/internal/config"
	"github.com/joshdurbin/shortlink/internal/form"
	"github.com/joshdurbin/shortlink/internal/logging"
	"github.com/joshdurbin/shortlink/internal/transport/client"
)

var (
	serverViper  = config.NewViper()
	shortenViper = config.NewViper()
	clientViper  = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:          "shortlink",
	Short:        "A URL shortening service and client",
	Long:         "Shortens URLs with optional custom shorts and expiry. Runs the SQLite-backed server or talks to one.",
	SilenceUsage: true,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the URL shortening server",
	RunE:  runServer,
}

var shortenCmd = &cobra.Command{
	Use:   "shorten [URL]",
	Short: "Shorten a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runShorten,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Admin commands for inspecting a running server",
}

var getCmd = &cobra.Command{
	Use:   "get [SHORT_CODE]",
	Short: "Get information about a short URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetURL,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [SHORT_CODE]",
	Short: "Delete a short URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteURL,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all live short URLs",
	RunE:  runListURLs,
}

func init() {
	cobra.CheckErr(config.BindServerFlags(serverCmd.Flags(), serverViper))

	cobra.CheckErr(config.BindClientFlags(shortenCmd.Flags(), shortenViper))
	shortenCmd.Flags().StringP("short", "s", "", "Custom short (letters, digits, - and _)")
	shortenCmd.Flags().IntP("expiry", "e", form.DefaultExpiry, "Expiry in hours")
	shortenCmd.Flags().Bool("fail", false, "Exit non-zero unless a short URL was created")

	cobra.CheckErr(config.BindClientFlags(clientCmd.PersistentFlags(), clientViper))

	clientCmd.AddCommand(getCmd, deleteCmd, listCmd)
	rootCmd.AddCommand(serverCmd, shortenCmd, clientCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serverViper)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting URL shortener server",
		zap.String("port", cfg.Server.Port),
		zap.String("server_url", cfg.Server.ServerURL),
		zap.String("db_path", cfg.Database.Path))

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

func runShorten(cmd *cobra.Command, args []string) error {
	commands, cfg, err := newCommands(shortenViper)
	if err != nil {
		return err
	}

	short, _ := cmd.Flags().GetString("short")
	expiry, _ := cmd.Flags().GetInt("expiry")
	fail, _ := cmd.Flags().GetBool("fail")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	return commands.Shorten(ctx, client.ShortenOptions{
		URL:    args[0],
		Short:  short,
		Expiry: expiry,
		Fail:   fail,
	})
}

func runGetURL(cmd *cobra.Command, args []string) error {
	commands, cfg, err := newCommands(clientViper)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	return commands.Get(ctx, args[0])
}

func runDeleteURL(cmd *cobra.Command, args []string) error {
	commands, cfg, err := newCommands(clientViper)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	return commands.Delete(ctx, args[0])
}

func runListURLs(cmd *cobra.Command, args []string) error {
	commands, cfg, err := newCommands(clientViper)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	return commands.List(ctx)
}

func newCommands(v *viper.Viper) (*client.Commands, *config.ClientConfig, error) {
	cfg, err := config.LoadClient(v)
	if err != nil {
		return nil, nil, err
	}

	logger := zap.NewNop()
	if cfg.Verbose {
		if logger, err = logging.New(true); err != nil {
			return nil, nil, err
		}
	}

	return client.NewCommands(client.NewClient(cfg.ServerURL), logger, os.Stdout, os.Stderr), cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
