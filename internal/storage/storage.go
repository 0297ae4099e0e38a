// Package storage models Proxmox storage backends and the naming rules
// for disks placed on them.
//
// Proxmox addresses a disk differently depending on how the backend
// stores it: directory-like backends (dir, nfs) hold disks as files and
// preserve the requested image format, while block backends (lvm,
// lvmthin) hold disks as raw logical volumes and cannot represent any
// format other than raw.
package storage

import "fmt"

// Format is a disk image format understood by the hypervisor.
type Format string

const (
	// FormatRaw is a plain byte-for-byte disk image.
	FormatRaw Format = "raw"
	// FormatQCOW2 is the QEMU copy-on-write image format.
	FormatQCOW2 Format = "qcow2"
)

// BackendType identifies how a storage backend stores disks.
type BackendType string

const (
	TypeDir     BackendType = "dir"
	TypeNFS     BackendType = "nfs"
	TypeLVM     BackendType = "lvm"
	TypeLVMThin BackendType = "lvmthin"
)

// Backend describes one storage backend on a node, as reported by the
// management API immediately before use. Capacity fields are in bytes.
type Backend struct {
	Name  string
	Type  BackendType
	Total int64
	Used  int64
	Avail int64
}

// UnsupportedStorageError reports a backend type outside the supported
// set {dir, nfs, lvm, lvmthin}.
type UnsupportedStorageError struct {
	Type BackendType
}

func (e *UnsupportedStorageError) Error() string {
	return fmt.Sprintf("storage type %q is not supported (only dir, nfs, lvm and lvmthin storage are supported)", e.Type)
}

// Strategy decides the disk naming convention for a backend and whether
// the requested image format is honored.
type Strategy interface {
	// DiskName returns the backend-level name for a disk.
	DiskName(vmid int, label string, format Format) string

	// CanonicalID returns the canonical disk identifier used by the
	// management API to reference the disk.
	CanonicalID(storageName string, vmid int, diskName string) string

	// EffectiveFormat returns the format actually used for the disk,
	// which may override the requested one.
	EffectiveFormat(requested Format) Format
}

// StrategyFor selects the Strategy for a backend type.
func StrategyFor(t BackendType) (Strategy, error) {
	switch t {
	case TypeDir, TypeNFS:
		return flatStrategy{}, nil
	case TypeLVM, TypeLVMThin:
		return blockStrategy{}, nil
	default:
		return nil, &UnsupportedStorageError{Type: t}
	}
}

// flatStrategy addresses disks as files on dir/nfs backends.
// Disk name: vm-<vmid>-<label>.<format>, id: <storage>:<vmid>/<diskname>.
type flatStrategy struct{}

func (flatStrategy) DiskName(vmid int, label string, format Format) string {
	return fmt.Sprintf("vm-%d-%s.%s", vmid, label, format)
}

func (flatStrategy) CanonicalID(storageName string, vmid int, diskName string) string {
	return fmt.Sprintf("%s:%d/%s", storageName, vmid, diskName)
}

func (flatStrategy) EffectiveFormat(requested Format) Format {
	return requested
}

// blockStrategy addresses disks as logical volumes on lvm/lvmthin
// backends. Disk name: vm-<vmid>-<label>, id: <storage>:<diskname>.
// Block volumes only hold raw data, so the format is always raw.
type blockStrategy struct{}

func (blockStrategy) DiskName(vmid int, label string, _ Format) string {
	return fmt.Sprintf("vm-%d-%s", vmid, label)
}

func (blockStrategy) CanonicalID(storageName string, _ int, diskName string) string {
	return fmt.Sprintf("%s:%s", storageName, diskName)
}

func (blockStrategy) EffectiveFormat(_ Format) Format {
	return FormatRaw
}
