// Package libvirt connects to the local libvirt daemon and describes the
// host it runs on.
//
// Connections use github.com/digitalocean/go-libvirt over the daemon's
// Unix socket:
//
//	client, err := libvirt.Connect("", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	host, err := libvirt.Probe(client.Libvirt(), afero.NewOsFs())
//
// This package does not define interfaces for its callers. Consumers
// (internal/install, internal/storage) declare the operations they need
// and *libvirt.Libvirt satisfies them implicitly.
package libvirt
