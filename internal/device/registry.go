package device

import (
	"fmt"
	"slices"
)

// NotFoundError is returned when removing a device the registry does not
// track.
type NotFoundError struct {
	Type Type
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s device is not attached", e.Type)
}

// List is the ordered collection of devices owned by one guest.
// It is not safe for concurrent use.
type List struct {
	container string
	devices   []Device
}

// NewList creates an empty registry whose device paths are rooted at
// container.
func NewList(container string) *List {
	return &List{container: container}
}

// Add appends devices and recomputes every device path.
func (l *List) Add(devs ...Device) {
	l.devices = append(l.devices, devs...)
	l.Recompute()
}

// Remove detaches d and recomputes the paths of the remaining devices.
func (l *List) Remove(d Device) error {
	i := slices.Index(l.devices, d)
	if i < 0 {
		return &NotFoundError{Type: d.Type()}
	}
	l.devices = slices.Delete(l.devices, i, i+1)
	d.SetPath("")
	l.Recompute()
	return nil
}

// Contains reports whether d is attached.
func (l *List) Contains(d Device) bool {
	return slices.Contains(l.devices, d)
}

// Get returns the devices of type t, or every device for All, in
// insertion order.
func (l *List) Get(t Type) []Device {
	out := make([]Device, 0, len(l.devices))
	for _, d := range l.devices {
		if t == All || d.Type() == t {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of attached devices.
func (l *List) Len() int {
	return len(l.devices)
}

// Recompute assigns each device the path <container>/<type>[n] where n
// counts devices of the same type from 1 in list order.
func (l *List) Recompute() {
	counters := make(map[Type]int)
	for _, d := range l.devices {
		counters[d.Type()]++
		d.SetPath(fmt.Sprintf("%s/%s[%d]", l.container, d.Type(), counters[d.Type()]))
	}
}

// Clone returns a registry holding copies of every device.
func (l *List) Clone() *List {
	c := &List{container: l.container, devices: make([]Device, 0, len(l.devices))}
	for _, d := range l.devices {
		c.devices = append(c.devices, d.Clone())
	}
	c.Recompute()
	return c
}

// Of returns the attached devices of concrete type T in insertion order.
func Of[T Device](l *List) []T {
	var out []T
	for _, d := range l.devices {
		if t, ok := d.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
