// Package storage provisions the libvirt volumes that back guest disks.
//
// A Manager implements device.Provisioner. Disks that carry a size but no
// source ask it for a volume during setup; the Manager returns the path of
// an existing volume of that name or creates one:
//
//	mgr := storage.NewManager(client.Libvirt())
//	path, err := mgr.ProvisionVolume(ctx, device.VolumeRequest{
//	    Pool:   "default",
//	    Name:   "web01.qcow2",
//	    Format: "qcow2",
//	    SizeGB: 20,
//	})
//
// The default pool is defined, built and started on first use when the
// host has none. Other pools must already exist.
//
// DetectImageFormat reads an image's magic bytes so imported disks get a
// driver type matching their contents.
package storage
