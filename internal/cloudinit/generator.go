// Package cloudinit builds NoCloud seed images for imported guests.
//
// A seed carries user-data, meta-data and, when interfaces are described,
// a netplan v2 network-config. Interfaces are matched by MAC address, so
// the seed must be generated after the guest's MACs are fixed.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed describes the first boot configuration of one guest.
type Seed struct {
	// InstanceID changes whenever cloud-init should run again. It
	// defaults to Hostname.
	InstanceID string
	// Hostname may be a fully qualified name.
	Hostname     string
	SSHKeys      []string
	PasswordHash string
	SSHPwAuth    bool
	Interfaces   []Interface
}

// Interface is the static addressing of one guest NIC.
type Interface struct {
	MAC       string
	Addresses []string
	Gateway   string
	DNS       []string
}

type userData struct {
	Hostname          string    `yaml:"hostname"`
	FQDN              string    `yaml:"fqdn"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Chpasswd          *chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
}

type chpasswd struct {
	Expire bool   `yaml:"expire"`
	List   string `yaml:"list"`
}

type metaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

type networkConfig struct {
	Version   int                 `yaml:"version"`
	Ethernets map[string]ethernet `yaml:"ethernets"`
}

type ethernet struct {
	Match       match        `yaml:"match"`
	SetName     string       `yaml:"set-name"`
	Addresses   []string     `yaml:"addresses,omitempty"`
	DHCP4       bool         `yaml:"dhcp4,omitempty"`
	Routes      []route      `yaml:"routes,omitempty"`
	Nameservers *nameservers `yaml:"nameservers,omitempty"`
}

type match struct {
	MACAddress string `yaml:"macaddress"`
}

type route struct {
	To  string `yaml:"to"`
	Via string `yaml:"via"`
}

type nameservers struct {
	Addresses []string `yaml:"addresses"`
}

func (s *Seed) validate() error {
	if s == nil {
		return errors.New("seed cannot be nil")
	}
	if s.Hostname == "" {
		return errors.New("seed hostname is required")
	}
	for i, iface := range s.Interfaces {
		if iface.MAC == "" {
			return fmt.Errorf("seed interface %d has no MAC address", i)
		}
	}
	return nil
}

// UserData renders the #cloud-config user-data document.
func (s *Seed) UserData() (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}

	ud := userData{
		Hostname:          strings.SplitN(s.Hostname, ".", 2)[0],
		FQDN:              s.Hostname,
		SSHAuthorizedKeys: s.SSHKeys,
		SSHPasswordAuth:   s.SSHPwAuth,
	}
	if s.PasswordHash != "" {
		ud.Chpasswd = &chpasswd{List: "root:" + s.PasswordHash}
	}

	out, err := yaml.Marshal(&ud)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data: %w", err)
	}
	return "#cloud-config\n" + string(out), nil
}

// MetaData renders the meta-data document.
func (s *Seed) MetaData() (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}
	id := s.InstanceID
	if id == "" {
		id = s.Hostname
	}
	out, err := yaml.Marshal(&metaData{InstanceID: id, LocalHostname: strings.SplitN(s.Hostname, ".", 2)[0]})
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data: %w", err)
	}
	return string(out), nil
}

// NetworkConfig renders the netplan v2 network-config document, or ""
// when the seed describes no interfaces. An interface without addresses
// uses DHCP.
func (s *Seed) NetworkConfig() (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}
	if len(s.Interfaces) == 0 {
		return "", nil
	}

	nc := networkConfig{Version: 2, Ethernets: make(map[string]ethernet)}
	for i, iface := range s.Interfaces {
		name := fmt.Sprintf("eth%d", i)
		eth := ethernet{
			Match:     match{MACAddress: iface.MAC},
			SetName:   name,
			Addresses: iface.Addresses,
			DHCP4:     len(iface.Addresses) == 0,
		}
		if iface.Gateway != "" {
			eth.Routes = []route{{To: "default", Via: iface.Gateway}}
		}
		if len(iface.DNS) > 0 {
			eth.Nameservers = &nameservers{Addresses: iface.DNS}
		}
		nc.Ethernets[name] = eth
	}

	out, err := yaml.Marshal(&nc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal network-config: %w", err)
	}
	return string(out), nil
}
