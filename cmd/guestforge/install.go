package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	golibvirt "github.com/digitalocean/go-libvirt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/install"
	"github.com/jbweber/guestforge/internal/libvirt"
	"github.com/jbweber/guestforge/internal/loader"
	"github.com/jbweber/guestforge/internal/progress"
	"github.com/jbweber/guestforge/internal/status"
	"github.com/jbweber/guestforge/internal/storage"
)

var installFlags struct {
	dryRun      bool
	replace     bool
	noBoot      bool
	noWait      bool
	writeStatus bool
}

var installCmd = &cobra.Command{
	Use:   "install <manifest.yaml>",
	Short: "Install a guest from a manifest",
	Long: `Install a guest described by a Guest manifest.

guestforge provisions the guest's disks, defines the domain and boots its
install. Installs that need a second boot from disk (some Windows media)
are continued once the first stage powers off, unless --no-wait is given.

With --dry-run the install and final domain documents are printed and
nothing is created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runInstall(ctx, args[0])
	},
}

func init() {
	f := installCmd.Flags()
	f.BoolVar(&installFlags.dryRun, "dry-run", false, "Print the domain documents without creating anything")
	f.BoolVar(&installFlags.replace, "replace", false, "Destroy and undefine an existing domain with the same name")
	f.BoolVar(&installFlags.noBoot, "noboot", false, "Define the guest without starting it")
	f.BoolVar(&installFlags.noWait, "no-wait", false, "Do not wait to continue a staged install")
	f.BoolVar(&installFlags.writeStatus, "write-status", false, "Write the resulting status back into the manifest")
}

func runInstall(ctx context.Context, path string) error {
	m, err := loader.LoadFromFile(path)
	if err != nil {
		return err
	}
	logger := log.WithField("guest", m.Name)

	tbl, err := loadOSDict()
	if err != nil {
		return err
	}

	// A dry run only needs the daemon for the host description.
	var lv *golibvirt.Libvirt
	host := guest.Host{}
	client, err := connect()
	switch {
	case err == nil:
		defer closeClient(client)
		lv = client.Libvirt()
		if host, err = libvirt.Probe(lv, afero.NewOsFs()); err != nil {
			return err
		}
	case installFlags.dryRun:
		logger.WithError(err).Warn("no libvirt connection, building documents without host capabilities")
	default:
		return err
	}

	g, inst, err := loader.Build(m, loader.BuildOptions{
		Resolver:    tbl,
		Host:        host,
		Releases:    tbl,
		DefaultPool: cfg.Install.DefaultPool,
		SeedDir:     cfg.Install.SeedDir,
	})
	if err != nil {
		return fmt.Errorf("failed to build guest: %w", err)
	}

	var provisioner device.Provisioner
	if lv != nil {
		provisioner = storage.NewManager(lv)
	}
	ctrl := install.NewController(g, inst, lv, provisioner, progress.NewBar(os.Stderr))

	res, err := ctrl.StartInstall(ctx, install.Options{
		DryRun:    installFlags.dryRun,
		Replace:   installFlags.replace,
		NoBoot:    installFlags.noBoot,
		Autostart: m.IsAutostart(),
	})
	if err == nil && installFlags.dryRun {
		printDocuments(res)
		return nil
	}

	if err == nil && res.ContinueRequired && !installFlags.noWait {
		res, err = continueInstall(ctx, ctrl, lv, res)
	}

	status.Record(m, res, guestMACs(g), err)
	if installFlags.writeStatus {
		if saveErr := loader.SaveToFile(m, path); saveErr != nil {
			logger.WithError(saveErr).Warn("failed to write status")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to install guest %s: %w", m.Name, err)
	}

	fmt.Printf("✓ Guest %s is %s (domain %s)\n", m.Name, m.Status.Phase, m.Status.DomainUUID)
	if res.ContinueRequired && installFlags.noWait {
		fmt.Println("  The install needs a second boot from disk once its first stage powers off.")
	}
	return nil
}

func continueInstall(ctx context.Context, ctrl *install.Controller, lv *golibvirt.Libvirt, staged *install.Result) (*install.Result, error) {
	interval, err := cfg.InstallPollInterval()
	if err != nil {
		return nil, err
	}

	fmt.Printf("Waiting for the first install stage of %s to power off...\n", staged.Domain.Name)
	if err := libvirt.WaitForShutoff(ctx, lv, staged.Domain, interval); err != nil {
		return nil, err
	}

	res, err := ctrl.ContinueInstall(ctx)
	if err != nil {
		return nil, err
	}
	res.ContinueRequired = false
	return res, nil
}

func printDocuments(res *install.Result) {
	if res.StartXML != "" {
		fmt.Println("<!-- install -->")
		fmt.Println(res.StartXML)
	}
	fmt.Println("<!-- final -->")
	fmt.Println(res.FinalXML)
}

func guestMACs(g *guest.Guest) []string {
	var macs []string
	for _, nic := range device.Of[*device.Interface](g.Devices) {
		if mac := nic.MAC(); mac != "" {
			macs = append(macs, mac)
		}
	}
	return macs
}
