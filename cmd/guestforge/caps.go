package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jbweber/guestforge/internal/libvirt"
)

var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "Show what the virtualization host supports",
	Long: `Probe the libvirt daemon and show the host description guestforge
builds documents against: architecture, PAE support, emulators and the
libvirt version.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		client, err := connect()
		if err != nil {
			return err
		}
		defer closeClient(client)

		host, err := libvirt.Probe(client.Libvirt(), afero.NewOsFs())
		if err != nil {
			return err
		}
		v, err := client.Libvirt().ConnectGetLibVersion()
		if err != nil {
			return fmt.Errorf("failed to get libvirt version: %w", err)
		}

		result, err := formatter.FormatHost(host, libvirt.FormatVersion(v))
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

func init() {
	addOutputFlags(capsCmd)
}
