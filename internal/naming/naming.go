// Package naming provides naming conventions for guest resources: MAC
// addresses, tap device names, disk target names and storage volume
// names.
package naming

import (
	"crypto/rand"
	"fmt"
	"net"
	"strings"
)

// LocalMACPrefix is the locally administered OUI used for generated
// addresses.
const LocalMACPrefix = "52:54:00"

// RandomMAC returns a random MAC address in the 52:54:00 range.
func RandomMAC() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return fmt.Sprintf("%s:%02x:%02x:%02x", LocalMACPrefix, buf[0], buf[1], buf[2]), nil
}

// ValidateMAC checks that mac is a colon separated 48-bit address.
func ValidateMAC(mac string) error {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("invalid MAC address %q: %w", mac, err)
	}
	if len(hw) != 6 || strings.Count(mac, ":") != 5 {
		return fmt.Errorf("invalid MAC address %q: expected six colon separated octets", mac)
	}
	return nil
}

// MACFromIP calculates a deterministic MAC address from an IPv4 address.
// Uses the locally administered prefix be:ef.
//
// Example: IP 10.55.22.22 → MAC be:ef:0a:37:16:16
func MACFromIP(ip string) (string, error) {
	ipv4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("be:ef:%02x:%02x:%02x:%02x",
		ipv4[0], ipv4[1], ipv4[2], ipv4[3]), nil
}

// parseIPv4 accepts both "10.1.2.3" and "10.1.2.3/24".
func parseIPv4(ip string) (net.IP, error) {
	ipStr := ip
	if strings.Contains(ip, "/") {
		ipAddr, _, err := net.ParseCIDR(ip)
		if err != nil {
			return nil, fmt.Errorf("invalid IP/CIDR: %w", err)
		}
		ipStr = ipAddr.String()
	}

	parsedIP := net.ParseIP(ipStr)
	if parsedIP == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipStr)
	}

	ipv4 := parsedIP.To4()
	if ipv4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %s", ipStr)
	}
	return ipv4, nil
}

// TargetPrefix returns the device name prefix used for disks on bus.
func TargetPrefix(bus string) string {
	switch bus {
	case "virtio":
		return "vd"
	case "xen":
		return "xvd"
	case "fdc":
		return "fd"
	case "scsi", "usb", "sata", "sd":
		return "sd"
	default:
		return "hd"
	}
}

// TargetLimit returns the number of targets a bus can address.
func TargetLimit(bus string) int {
	switch bus {
	case "fdc":
		return 2
	case "ide":
		return 4
	default:
		return 1024
	}
}

// TargetName returns the n-th (zero based) target name for prefix, using
// the a..z, aa..az, ba.. sequence.
//
// Example: TargetName("vd", 0) → vda, TargetName("sd", 26) → sdaa
func TargetName(prefix string, n int) string {
	var suffix []byte
	for n >= 0 {
		suffix = append([]byte{byte('a' + n%26)}, suffix...)
		n = n/26 - 1
	}
	return prefix + string(suffix)
}

// NextTarget returns the first target for bus not present in used.
func NextTarget(bus string, used []string) (string, error) {
	prefix := TargetPrefix(bus)
	taken := make(map[string]bool, len(used))
	for _, u := range used {
		taken[u] = true
	}
	for i := 0; i < TargetLimit(bus); i++ {
		if name := TargetName(prefix, i); !taken[name] {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free disk targets left on bus %q", bus)
}

// VolumeName returns the storage volume name for a guest disk.
// Format: {guest}_{target}.{format} (e.g., "web_vda.qcow2")
func VolumeName(guest, target, format string) string {
	if format == "" {
		format = "qcow2"
	}
	return fmt.Sprintf("%s_%s.%s", guest, target, format)
}

// SeedName returns the file name of a guest's cloud-init seed image.
// Format: {guest}_cloudinit.iso
func SeedName(guest string) string {
	return fmt.Sprintf("%s_cloudinit.iso", guest)
}
