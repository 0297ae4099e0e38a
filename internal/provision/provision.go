// Package provision sequences a full VM provisioning run.
//
// One run creates the VM skeleton via the management API, builds the
// cloud-init seed image locally, uploads and attaches seed and base
// disks, attaches a serial console, and optionally starts the VM. The
// locally generated seed image is removed on every exit path, no matter
// which step failed. Nothing is retried.
package provision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pvetools/pvedeploy/internal/cloudinit"
	"github.com/pvetools/pvedeploy/internal/proxmox"
	"github.com/pvetools/pvedeploy/internal/storage"
	"github.com/pvetools/pvedeploy/internal/uploader"
)

// Disk slots and labels used for the two uploaded disks. The base disk
// occupies the primary slot and is the boot device; the seed ISO sits
// in the secondary slot.
const (
	baseDiskSlot  = "virtio0"
	seedDiskSlot  = "virtio1"
	baseDiskLabel = "base-disk"
	seedDiskLabel = "cloudinit-seed"
)

// apiClient is the slice of the management API the provisioner needs.
// Satisfied by *proxmox.Client in production.
type apiClient interface {
	CreateVM(ctx context.Context, spec proxmox.VmSpec) error
	SetVMConfig(ctx context.Context, node string, vmid int, options map[string]interface{}) error
	ResizeDisk(ctx context.Context, node string, vmid int, disk string, sizeBytes int64) error
	StartVM(ctx context.Context, node string, vmid int) error
}

// imageUploader runs the disk upload pipeline.
// Satisfied by *uploader.Uploader in production.
type imageUploader interface {
	Upload(ctx context.Context, req uploader.Request) (string, error)
}

// seedBuilder produces a local cloud-init seed image.
// Satisfied by *cloudinit.Builder in production.
type seedBuilder interface {
	Build(ctx context.Context, p cloudinit.Params) (string, error)
}

// VmCreationError reports that the VM skeleton could not be created.
// Nothing needs cleaning up when this happens.
type VmCreationError struct {
	VMID int
	Err  error
}

func (e *VmCreationError) Error() string {
	return fmt.Sprintf("failed to create vm %d: %v", e.VMID, e.Err)
}

func (e *VmCreationError) Unwrap() error {
	return e.Err
}

// Params describes one provisioning run.
type Params struct {
	// Spec is the VM skeleton; immutable once the run starts.
	Spec proxmox.VmSpec
	// Storage is the backend both disks are uploaded to.
	Storage string
	// ImagePath is the local cloud image for the base disk.
	ImagePath string
	// DiskSizeKiB is the requested base disk size in kilobytes.
	DiskSizeKiB int64
	// Seed configures the cloud-init seed image.
	Seed cloudinit.Params
	// StartVM starts the VM after provisioning when set.
	StartVM bool
}

// Provisioner runs provisioning end to end.
type Provisioner struct {
	api     apiClient
	uploads imageUploader
	seeds   seedBuilder
	log     *logrus.Entry

	state   State
	history []State
}

// New creates a Provisioner.
func New(api apiClient, uploads imageUploader, seeds seedBuilder, log *logrus.Entry) *Provisioner {
	return &Provisioner{
		api:     api,
		uploads: uploads,
		seeds:   seeds,
		log:     log,
	}
}

// State returns the current run state.
func (p *Provisioner) State() State {
	return p.state
}

// History returns every state the run passed through, in order.
func (p *Provisioner) History() []State {
	return p.history
}

func (p *Provisioner) setState(s State) {
	p.state = s
	p.history = append(p.history, s)
}

// Run executes a provisioning run. On failure the run ends in Failed
// after the guaranteed local cleanup; the originating error is
// returned with its captured command output intact.
func (p *Provisioner) Run(ctx context.Context, params Params) (err error) {
	defer func() {
		if err != nil {
			p.setState(StateFailed)
		}
	}()

	if err := p.api.CreateVM(ctx, params.Spec); err != nil {
		// No disks or local files exist yet, abort outright.
		return &VmCreationError{VMID: params.Spec.VMID, Err: err}
	}
	p.setState(StateCreated)

	seedPath, err := p.seeds.Build(ctx, params.Seed)
	if err != nil {
		return fmt.Errorf("failed to build seed image: %w", err)
	}
	// The seed file is removed on every exit path from here on.
	defer p.removeSeed(seedPath)

	if err = p.attachSeedISO(ctx, params, seedPath); err != nil {
		return err
	}
	p.setState(StateSeedAttached)

	if err = p.attachBaseDisk(ctx, params); err != nil {
		return err
	}
	p.setState(StateBaseDiskAttached)

	if err = p.attachSerialConsole(ctx, params); err != nil {
		return err
	}
	p.setState(StateSerialAttached)

	if params.StartVM {
		p.log.Info("starting virtual machine")
		if err = p.api.StartVM(ctx, params.Spec.Node, params.Spec.VMID); err != nil {
			return err
		}
		p.setState(StateStarted)
	} else {
		p.setState(StateStopped)
	}

	p.setState(StateDone)
	p.log.Info("virtual machine provisioning completed")
	return nil
}

// attachSeedISO uploads the seed image as a raw disk and attaches it to
// the VM's secondary disk slot.
func (p *Provisioner) attachSeedISO(ctx context.Context, params Params, seedPath string) error {
	p.log.Info("uploading cloud-init seed ISO")

	diskID, err := p.uploads.Upload(ctx, uploader.Request{
		Node:       params.Spec.Node,
		Storage:    params.Storage,
		VMID:       params.Spec.VMID,
		SourcePath: seedPath,
		Format:     storage.FormatRaw,
		Label:      seedDiskLabel,
	})
	if err != nil {
		return fmt.Errorf("failed to upload seed image: %w", err)
	}

	return p.api.SetVMConfig(ctx, params.Spec.Node, params.Spec.VMID, map[string]interface{}{
		seedDiskSlot: diskID,
	})
}

// attachBaseDisk uploads the cloud image, attaches it as the boot
// device and resizes it to the requested size. A resize failure caused
// by a disk-size mismatch is downgraded to a warning; the VM keeps
// whatever size was actually allocated.
func (p *Provisioner) attachBaseDisk(ctx context.Context, params Params) error {
	p.log.Info("uploading cloud image")

	diskID, err := p.uploads.Upload(ctx, uploader.Request{
		Node:       params.Spec.Node,
		Storage:    params.Storage,
		VMID:       params.Spec.VMID,
		SourcePath: params.ImagePath,
		Format:     storage.FormatQCOW2,
		Label:      baseDiskLabel,
		SizeKiB:    params.DiskSizeKiB,
	})
	if err != nil {
		return fmt.Errorf("failed to upload base image: %w", err)
	}

	err = p.api.SetVMConfig(ctx, params.Spec.Node, params.Spec.VMID, map[string]interface{}{
		baseDiskSlot: diskID,
		"bootdisk":   baseDiskSlot,
	})
	if err != nil {
		return err
	}

	p.log.Info("resizing virtual disk")
	// Sizes are kilobytes internally; the resize API takes bytes.
	err = p.api.ResizeDisk(ctx, params.Spec.Node, params.Spec.VMID, baseDiskSlot, params.DiskSizeKiB*1024)
	if err != nil {
		if !strings.Contains(err.Error(), "disk size") {
			return err
		}
		p.log.WithError(err).Warn("failed to set disk size, disk will probably be bigger than expected")
	}
	return nil
}

// attachSerialConsole adds a serial console to the VM.
func (p *Provisioner) attachSerialConsole(ctx context.Context, params Params) error {
	p.log.Info("adding serial console")
	return p.api.SetVMConfig(ctx, params.Spec.Node, params.Spec.VMID, map[string]interface{}{
		"serial0": "socket",
	})
}

// removeSeed deletes the local seed image. Failures are logged only.
func (p *Provisioner) removeSeed(seedPath string) {
	p.log.Debug("removing seed ISO file")
	if err := os.Remove(seedPath); err != nil && !os.IsNotExist(err) {
		p.log.WithError(err).Warn("failed to remove seed ISO file")
	}
}
