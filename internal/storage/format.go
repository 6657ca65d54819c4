package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

var (
	// qcow2Magic opens every QCOW2 header: "QFI" followed by 0xfb.
	qcow2Magic = []byte{0x51, 0x46, 0x49, 0xfb}

	// mbrSignature ends the first sector of MBR and protective-MBR (GPT)
	// disks.
	mbrSignature = []byte{0x55, 0xaa}
)

// DetectImageFormat reports whether the image at path is QCOW2 or a
// bootable raw disk. Anything else is an error.
func DetectImageFormat(fs afero.Fs, path string) (VolumeFormat, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, len(qcow2Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return "", fmt.Errorf("file too small to be valid image (< 4 bytes): %w", err)
	}
	if bytes.Equal(magic, qcow2Magic) {
		return VolumeFormatQCOW2, nil
	}

	sig := make([]byte, len(mbrSignature))
	if _, err := f.ReadAt(sig, 510); err != nil {
		return "", fmt.Errorf("file too small for boot sector (< 512 bytes): %w", err)
	}
	if bytes.Equal(sig, mbrSignature) {
		return VolumeFormatRaw, nil
	}

	return "", fmt.Errorf("unsupported or invalid image: not qcow2 and missing boot sector signature (0x55aa at offset 510)")
}
