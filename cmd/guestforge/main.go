package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbweber/guestforge/internal/config"
	"github.com/jbweber/guestforge/internal/libvirt"
	"github.com/jbweber/guestforge/internal/osdict"
	"github.com/jbweber/guestforge/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath   string
	debug        bool
	outputFormat string
	noHeaders    bool

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "guestforge",
	Short: "guestforge - libvirt guest installer",
	Long: `guestforge installs libvirt guests from YAML manifests.

It builds the install and final domain documents for a guest, provisions
its storage and drives the install through the libvirt daemon.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c

		log.SetLevel(cfg.LogLevel())
		if debug {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the guestforge config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(osinfoCmd)
	rootCmd.AddCommand(capsCmd)
	rootCmd.AddCommand(statusCmd)
}

// addOutputFlags registers -o and --no-headers on a listing command.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "output", "o", string(output.FormatTable), "Output format: table, yaml or json")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit table headers")
}

func newFormatter() (output.Formatter, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

// connect dials the daemon named in the config file.
func connect() (*libvirt.Client, error) {
	timeout, err := cfg.ConnectTimeout()
	if err != nil {
		return nil, err
	}
	client, err := libvirt.Connect(cfg.Connection.Socket, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	return client, nil
}

func closeClient(client *libvirt.Client) {
	if err := client.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", err)
	}
}

// loadOSDict returns the configured OS dictionary, or the built-in one.
func loadOSDict() (*osdict.Table, error) {
	if cfg.OSDict.Path == "" {
		return osdict.Builtin()
	}
	tbl, err := osdict.Load(cfg.OSDict.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OS dictionary: %w", err)
	}
	return tbl, nil
}
