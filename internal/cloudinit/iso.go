package cloudinit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kdomanski/iso9660"
)

// VolumeLabel is the volume identifier the NoCloud datasource looks for.
const VolumeLabel = "CIDATA"

// GenerateISO writes the seed files into an ISO9660 image.
func GenerateISO(s *Seed) ([]byte, error) {
	files := []struct {
		name   string
		render func() (string, error)
	}{
		{"user-data", s.UserData},
		{"meta-data", s.MetaData},
		{"network-config", s.NetworkConfig},
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	for _, f := range files {
		content, err := f.render()
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", f.name, err)
		}
		if content == "" {
			continue
		}
		if err := writer.AddFile(strings.NewReader(content), f.name); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, VolumeLabel); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}
	return buf.Bytes(), nil
}
