package cloudinit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testSSHKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIIbJKZscbOLzBsgY5y2QupKW4A2kSDjMBQGPb1dChr+S test@example.com"

func TestUserData(t *testing.T) {
	tests := []struct {
		name    string
		seed    *Seed
		wantErr bool
		check   func(t *testing.T, ud userData)
	}{
		{name: "nil seed", seed: nil, wantErr: true},
		{name: "no hostname", seed: &Seed{}, wantErr: true},
		{
			name: "short hostname",
			seed: &Seed{Hostname: "web01"},
			check: func(t *testing.T, ud userData) {
				assert.Equal(t, "web01", ud.Hostname)
				assert.Equal(t, "web01", ud.FQDN)
				assert.Nil(t, ud.Chpasswd)
				assert.False(t, ud.SSHPasswordAuth)
			},
		},
		{
			name: "fqdn with keys and password",
			seed: &Seed{
				Hostname:     "web01.example.com",
				SSHKeys:      []string{testSSHKey},
				PasswordHash: "$6$rounds=4096$salt$hash",
				SSHPwAuth:    true,
			},
			check: func(t *testing.T, ud userData) {
				assert.Equal(t, "web01", ud.Hostname)
				assert.Equal(t, "web01.example.com", ud.FQDN)
				assert.Equal(t, []string{testSSHKey}, ud.SSHAuthorizedKeys)
				require.NotNil(t, ud.Chpasswd)
				assert.Equal(t, "root:$6$rounds=4096$salt$hash", ud.Chpasswd.List)
				assert.True(t, ud.SSHPasswordAuth)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.seed.UserData()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(out, "#cloud-config\n"))

			var ud userData
			require.NoError(t, yaml.Unmarshal([]byte(strings.TrimPrefix(out, "#cloud-config\n")), &ud))
			tt.check(t, ud)
		})
	}
}

func TestMetaData(t *testing.T) {
	out, err := (&Seed{Hostname: "web01.example.com"}).MetaData()
	require.NoError(t, err)
	var md metaData
	require.NoError(t, yaml.Unmarshal([]byte(out), &md))
	assert.Equal(t, "web01.example.com", md.InstanceID)
	assert.Equal(t, "web01", md.LocalHostname)

	out, err = (&Seed{Hostname: "web01", InstanceID: "i-42"}).MetaData()
	require.NoError(t, err)
	assert.Contains(t, out, "instance-id: i-42")
}

func TestNetworkConfig(t *testing.T) {
	out, err := (&Seed{Hostname: "web01"}).NetworkConfig()
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = (&Seed{Hostname: "web01", Interfaces: []Interface{{}}}).NetworkConfig()
	assert.Error(t, err)

	seed := &Seed{
		Hostname: "web01",
		Interfaces: []Interface{
			{MAC: "be:ef:0a:00:00:0a", Addresses: []string{"10.0.0.10/24"}, Gateway: "10.0.0.1", DNS: []string{"10.0.0.2"}},
			{MAC: "52:54:00:12:34:56"},
		},
	}
	out, err = seed.NetworkConfig()
	require.NoError(t, err)

	var nc networkConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &nc))
	assert.Equal(t, 2, nc.Version)
	require.Len(t, nc.Ethernets, 2)

	static := nc.Ethernets["eth0"]
	assert.Equal(t, "be:ef:0a:00:00:0a", static.Match.MACAddress)
	assert.Equal(t, []string{"10.0.0.10/24"}, static.Addresses)
	assert.Equal(t, []route{{To: "default", Via: "10.0.0.1"}}, static.Routes)
	require.NotNil(t, static.Nameservers)
	assert.False(t, static.DHCP4)

	dhcp := nc.Ethernets["eth1"]
	assert.True(t, dhcp.DHCP4)
	assert.Empty(t, dhcp.Routes)
}
