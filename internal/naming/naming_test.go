package naming

import (
	"strings"
	"testing"
)

func TestMACFromIP(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		want    string
		wantErr bool
	}{
		{name: "basic IP", ip: "10.20.30.40", want: "be:ef:0a:14:1e:28"},
		{name: "IP with CIDR", ip: "10.250.250.10/24", want: "be:ef:0a:fa:fa:0a"},
		{name: "invalid IP", ip: "not-an-ip", wantErr: true},
		{name: "IPv6 address", ip: "2001:db8::1", wantErr: true},
		{name: "invalid CIDR", ip: "10.1.2.3/99", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MACFromIP(tt.ip)
			if (err != nil) != tt.wantErr {
				t.Errorf("MACFromIP() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("MACFromIP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRandomMAC(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		mac, err := RandomMAC()
		if err != nil {
			t.Fatalf("RandomMAC() error = %v", err)
		}
		if !strings.HasPrefix(mac, LocalMACPrefix+":") {
			t.Errorf("RandomMAC() = %s, want prefix %s", mac, LocalMACPrefix)
		}
		if err := ValidateMAC(mac); err != nil {
			t.Errorf("RandomMAC() produced invalid address: %v", err)
		}
		seen[mac] = true
	}
	if len(seen) < 2 {
		t.Error("RandomMAC() returned the same address every time")
	}
}

func TestValidateMAC(t *testing.T) {
	tests := []struct {
		mac     string
		wantErr bool
	}{
		{"52:54:00:12:34:56", false},
		{"BE:EF:0A:14:1E:28", false},
		{"52-54-00-12-34-56", true},
		{"52:54:00:12:34", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.mac, func(t *testing.T) {
			if err := ValidateMAC(tt.mac); (err != nil) != tt.wantErr {
				t.Errorf("ValidateMAC(%q) error = %v, wantErr %v", tt.mac, err, tt.wantErr)
			}
		})
	}
}

func TestTargetName(t *testing.T) {
	tests := []struct {
		prefix string
		n      int
		want   string
	}{
		{"vd", 0, "vda"},
		{"vd", 25, "vdz"},
		{"sd", 26, "sdaa"},
		{"sd", 27, "sdab"},
		{"sd", 52, "sdba"},
		{"hd", 3, "hdd"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := TargetName(tt.prefix, tt.n); got != tt.want {
				t.Errorf("TargetName(%q, %d) = %v, want %v", tt.prefix, tt.n, got, tt.want)
			}
		})
	}
}

func TestNextTarget(t *testing.T) {
	got, err := NextTarget("virtio", []string{"vda", "vdc"})
	if err != nil {
		t.Fatalf("NextTarget() error = %v", err)
	}
	if got != "vdb" {
		t.Errorf("NextTarget() = %v, want vdb", got)
	}

	got, err = NextTarget("fdc", nil)
	if err != nil || got != "fda" {
		t.Errorf("NextTarget(fdc) = %v, %v, want fda", got, err)
	}

	if _, err := NextTarget("ide", []string{"hda", "hdb", "hdc", "hdd"}); err == nil {
		t.Error("expected error when the IDE bus is full")
	}
}

func TestVolumeName(t *testing.T) {
	tests := []struct {
		guest  string
		target string
		format string
		want   string
	}{
		{"web", "vda", "qcow2", "web_vda.qcow2"},
		{"web", "vdb", "raw", "web_vdb.raw"},
		{"db", "sda", "", "db_sda.qcow2"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := VolumeName(tt.guest, tt.target, tt.format); got != tt.want {
				t.Errorf("VolumeName() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := SeedName("web"); got != "web_cloudinit.iso" {
		t.Errorf("SeedName() = %v, want web_cloudinit.iso", got)
	}
}
