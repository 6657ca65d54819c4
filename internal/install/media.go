package install

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kdomanski/iso9660"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/gcfg.v1"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/progress"
)

const (
	treeKernel = "images/pxeboot/vmlinuz"
	treeInitrd = "images/pxeboot/initrd.img"
	treeInfo   = ".treeinfo"
)

// Media installs from distribution media: an ISO image attached as a
// cdrom, or an unpacked install tree booted through its kernel and
// initrd.
type Media struct {
	// Location is an ISO file or a tree directory on the host.
	Location string
	// Extra is appended to the kernel command line of a tree install.
	Extra string

	Releases ReleaseMapper
	Fs       afero.Fs

	tree bool
}

// NewMedia returns a media installer reading the host filesystem.
func NewMedia(location string, releases ReleaseMapper) *Media {
	return &Media{Location: location, Releases: releases, Fs: afero.NewOsFs()}
}

func (m *Media) Name() string          { return "media" }
func (m *Media) HasInstallPhase() bool { return true }
func (m *Media) Cleanup() error        { return nil }

// Prepare checks the media. An ISO gets a transient cdrom; a tree must
// carry a PXE kernel and initrd.
func (m *Media) Prepare(_ context.Context, g *guest.Guest, meter progress.Meter) error {
	meter.Start("Checking install media", 0)
	defer meter.End()

	fi, err := m.Fs.Stat(m.Location)
	if err != nil {
		return fmt.Errorf("failed to access install media %s: %w", m.Location, err)
	}

	if fi.IsDir() {
		for _, rel := range []string{treeKernel, treeInitrd} {
			if _, err := m.Fs.Stat(filepath.Join(m.Location, rel)); err != nil {
				return fmt.Errorf("%s is not an install tree: missing %s", m.Location, rel)
			}
		}
		m.tree = true
		return nil
	}

	m.tree = false
	cdrom := device.NewDisk()
	if err := cdrom.Set("device", device.DiskDeviceCDROM); err != nil {
		return err
	}
	cdrom.SetSource(m.Location)
	cdrom.Transient = true
	g.AddInstallDevice(cdrom)
	return nil
}

// AlterBootConfig boots the install phase from the media and the final
// phase from disk.
func (m *Media) AlterBootConfig(g *guest.Guest, install bool) error {
	if m.tree {
		for _, f := range []string{"kernel", "initrd", "cmdline"} {
			g.OS.Clear(f)
		}
		if install {
			g.OS.Put("kernel", filepath.Join(m.Location, treeKernel))
			g.OS.Put("initrd", filepath.Join(m.Location, treeInitrd))
			if m.Extra != "" {
				g.OS.Put("cmdline", m.Extra)
			}
			return nil
		}
	}

	if !g.OS.IsHVM() {
		return nil
	}
	order := []string{"hd"}
	if install && !m.tree {
		order = []string{"cdrom", "hd"}
	}
	return g.OS.Set("bootorder", order)
}

// DetectDistro reads the .treeinfo of the tree or the ISO.
func (m *Media) DetectDistro(_ context.Context) (string, string, error) {
	if m.Releases == nil {
		return "", "", nil
	}

	data, err := m.readTreeInfo()
	if err != nil {
		return "", "", err
	}
	if data == "" {
		log.WithField("media", m.Location).Debug("no .treeinfo found on install media")
		return "", "", nil
	}

	family, version, err := parseTreeInfo(data)
	if err != nil {
		return "", "", err
	}
	osType, variant, ok := m.Releases.ForRelease(family, version)
	if !ok {
		log.WithFields(log.Fields{"family": family, "version": version}).Debug("unrecognized distribution release")
		return "", "", nil
	}
	log.WithFields(log.Fields{"os_type": osType, "os_variant": variant}).Info("detected distribution")
	return osType, variant, nil
}

func (m *Media) readTreeInfo() (string, error) {
	fi, err := m.Fs.Stat(m.Location)
	if err != nil {
		return "", fmt.Errorf("failed to access install media %s: %w", m.Location, err)
	}

	if fi.IsDir() {
		path := filepath.Join(m.Location, treeInfo)
		if ok, err := afero.Exists(m.Fs, path); err != nil || !ok {
			return "", err
		}
		data, err := afero.ReadFile(m.Fs, path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", treeInfo, err)
		}
		return string(data), nil
	}

	f, err := m.Fs.Open(m.Location)
	if err != nil {
		return "", fmt.Errorf("failed to open install media %s: %w", m.Location, err)
	}
	defer func() {
		_ = f.Close()
	}()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		return "", fmt.Errorf("failed to read ISO image %s: %w", m.Location, err)
	}
	root, err := img.RootDir()
	if err != nil {
		return "", fmt.Errorf("failed to read ISO root directory: %w", err)
	}
	children, err := root.GetChildren()
	if err != nil {
		return "", fmt.Errorf("failed to list ISO root directory: %w", err)
	}
	for _, child := range children {
		if child.IsDir() || !isTreeInfoName(child.Name()) {
			continue
		}
		data, err := io.ReadAll(child.Reader())
		if err != nil {
			return "", fmt.Errorf("failed to read %s from ISO: %w", treeInfo, err)
		}
		return string(data), nil
	}
	return "", nil
}

// isTreeInfoName matches .treeinfo as plain ISO9660 levels mangle it.
func isTreeInfoName(name string) bool {
	name = strings.ToLower(strings.TrimSuffix(name, ";1"))
	return strings.Trim(name, "._") == "treeinfo"
}

type treeInfoFile struct {
	General struct {
		Family  string
		Version string
		Arch    string
	}
	Release struct {
		Name    string
		Version string
	}
}

var treeInfoKeys = map[string]bool{"family": true, "name": true, "version": true, "arch": true}

// parseTreeInfo returns the release family and version of a .treeinfo
// document. Only the keys treeInfoFile models are passed to gcfg;
// productmd trees carry names like is_layered or images/boot.iso that it
// rejects.
func parseTreeInfo(data string) (string, string, error) {
	var b strings.Builder
	keep := false
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "[") {
			section := strings.ToLower(strings.Trim(line, "[] "))
			keep = section == "general" || section == "release"
			if keep {
				b.WriteString("[" + section + "]\n")
			}
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if keep && ok && treeInfoKeys[strings.ToLower(strings.TrimSpace(key))] {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	var ti treeInfoFile
	if err := gcfg.FatalOnly(gcfg.ReadStringInto(&ti, b.String())); err != nil {
		return "", "", fmt.Errorf("failed to parse %s: %w", treeInfo, err)
	}

	family, version := ti.Release.Name, ti.Release.Version
	if family == "" {
		family, version = ti.General.Family, ti.General.Version
	}
	if family == "" {
		return "", "", fmt.Errorf("%s names no release family", treeInfo)
	}
	return family, version, nil
}
