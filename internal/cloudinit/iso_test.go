package cloudinit

import (
	"bytes"
	"io"
	"testing"

	"github.com/kdomanski/iso9660"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readISO(t *testing.T, data []byte) (string, map[string]string) {
	t.Helper()
	img, err := iso9660.OpenImage(bytes.NewReader(data))
	require.NoError(t, err)

	label, err := img.Label()
	require.NoError(t, err)

	root, err := img.RootDir()
	require.NoError(t, err)
	children, err := root.GetChildren()
	require.NoError(t, err)

	files := make(map[string]string)
	for _, c := range children {
		content, err := io.ReadAll(c.Reader())
		require.NoError(t, err)
		files[c.Name()] = string(content)
	}
	return label, files
}

func TestGenerateISO(t *testing.T) {
	seed := &Seed{
		Hostname: "web01.example.com",
		SSHKeys:  []string{testSSHKey},
		Interfaces: []Interface{
			{MAC: "52:54:00:12:34:56", Addresses: []string{"192.168.1.100/24"}, Gateway: "192.168.1.1"},
		},
	}
	data, err := GenerateISO(seed)
	require.NoError(t, err)

	label, files := readISO(t, data)
	assert.Equal(t, VolumeLabel, label)
	require.Len(t, files, 3)

	ud, err := seed.UserData()
	require.NoError(t, err)
	assert.Equal(t, ud, files["user-data"])
	assert.Contains(t, files["network-config"], "52:54:00:12:34:56")
}

func TestGenerateISOWithoutNetwork(t *testing.T) {
	data, err := GenerateISO(&Seed{Hostname: "web01"})
	require.NoError(t, err)

	_, files := readISO(t, data)
	assert.Len(t, files, 2)
	assert.NotContains(t, files, "network-config")
}

func TestGenerateISOInvalidSeed(t *testing.T) {
	_, err := GenerateISO(&Seed{})
	assert.Error(t, err)
}
