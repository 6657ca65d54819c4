package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbweber/guestforge/api/v1alpha1"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/osdict"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool

	// now is overridden by tests.
	now func() time.Time
}

func (f *TableFormatter) since(t time.Time) time.Duration {
	if f.now != nil {
		return f.now().Sub(t)
	}
	return time.Since(t)
}

// FormatGuest formats a single Guest as a table row.
func (f *TableFormatter) FormatGuest(g *v1alpha1.Guest) (string, error) {
	return f.FormatGuestList([]*v1alpha1.Guest{g})
}

// FormatGuestList formats Guests as a table.
func (f *TableFormatter) FormatGuestList(gs []*v1alpha1.Guest) (string, error) {
	if len(gs) == 0 {
		return "No guests found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tPHASE\tOS\tVCPUS\tMEMORY\tINSTALL\tAGE")
	}

	for _, g := range gs {
		phase := string(g.Status.Phase)
		if phase == "" {
			phase = "-"
		}
		age := "-"
		if !g.CreationTimestamp.IsZero() {
			age = formatAge(f.since(g.CreationTimestamp.Time))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d MiB\t%s\t%s\n",
			g.Name, phase, dash(g.Spec.OS.Variant), g.Spec.VCPUs, g.Spec.MemoryMiB,
			dash(g.Spec.Install.Method), age)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatVariants formats dictionary rows as a table.
func (f *TableFormatter) FormatVariants(vs []osdict.VariantInfo) (string, error) {
	if len(vs) == 0 {
		return "No OS variants found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "TYPE\tVARIANT\tDISTRO\tLABEL")
	}
	for _, v := range vs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Type, v.Variant, dash(v.Distro), v.Label)
	}
	_ = w.Flush()
	return buf.String(), nil
}

// FormatHost formats a host description as key/value rows followed by
// its emulators.
func (f *TableFormatter) FormatHost(h guest.Host, libVersion string) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Arch:\t%s\n", dash(h.Arch))
	_, _ = fmt.Fprintf(w, "Libvirt:\t%s\n", dash(libVersion))
	_, _ = fmt.Fprintf(w, "PAE:\t%s\n", yesNo(h.SupportsPAE))
	_, _ = fmt.Fprintf(w, "Spice agent channel:\t%s\n", yesNo(h.SupportsSpiceVMC))
	_, _ = fmt.Fprintf(w, "Blktap:\t%s\n", yesNo(h.BlktapCapable))

	keys := make([]string, 0, len(h.Emulators))
	for k := range h.Emulators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		_, _ = fmt.Fprintln(w, "Emulators:")
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", strings.Replace(k, "/", " ", 1), h.Emulators[k])
		}
	}

	_ = w.Flush()
	return buf.String(), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}
	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}
	weeks := days / 7
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}
	if years := days / 365; years > 0 {
		return fmt.Sprintf("%dy", years)
	}
	return fmt.Sprintf("%dd", days)
}
