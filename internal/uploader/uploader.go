// Package uploader implements the remote disk-provisioning pipeline.
//
// One Upload call transfers a local image to the target node, prepares
// it, allocates a disk on the chosen storage backend and installs the
// image into that disk, all over a single remote command channel. The
// step order is fixed:
//
//  1. transfer the file to a remote temporary path
//  2. decompress it in place when it is compressed
//  3. measure the image's virtual size
//  4. reconcile measured and requested sizes
//  5. allocate the disk
//  6. resolve the disk's device or file path
//  7. convert and copy the image into the disk
//  8. remove the temporary file (always, exactly once)
//
// A failure in steps 2-7 skips the remaining steps but never the
// cleanup. Sizes are tracked in kilobytes throughout.
package uploader

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pvetools/pvedeploy/internal/remote"
	"github.com/pvetools/pvedeploy/internal/storage"
)

// decompressors maps a compression extension to the remote tool that
// unpacks it in place. All three are silent on success.
var decompressors = map[string]string{
	".xz":  "unxz",
	".gz":  "gunzip",
	".bz2": "bunzip2",
}

// validImageExts are the source image types qemu-img can convert.
var validImageExts = map[string]bool{
	".iso":   true,
	".img":   true,
	".qcow2": true,
	".raw":   true,
}

func validImageExtensions() []string {
	exts := make([]string, 0, len(validImageExts))
	for ext := range validImageExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Request describes one disk upload. SizeKiB overrides the disk size
// derived from the image; zero means derive it.
type Request struct {
	Node       string
	Storage    string
	VMID       int
	SourcePath string
	Format     storage.Format
	Label      string
	SizeKiB    int64
}

// remoteSession is the slice of the SSH executor the pipeline uses.
type remoteSession interface {
	Execute(ctx context.Context, command string) (remote.Result, error)
	UploadFile(ctx context.Context, localPath string) (string, error)
}

// backendLookup fetches storage backend state immediately before use.
type backendLookup interface {
	Storage(ctx context.Context, node, name string) (storage.Backend, error)
}

// Uploader runs upload pipelines over one remote session.
type Uploader struct {
	session  remoteSession
	backends backendLookup
	log      *logrus.Entry
}

// New creates an Uploader.
func New(session remoteSession, backends backendLookup, log *logrus.Entry) *Uploader {
	return &Uploader{
		session:  session,
		backends: backends,
		log:      log,
	}
}

// Upload runs the pipeline for one request and returns the canonical
// disk identifier on success.
func (u *Uploader) Upload(ctx context.Context, req Request) (string, error) {
	backend, err := u.backends.Storage(ctx, req.Node, req.Storage)
	if err != nil {
		return "", err
	}

	strategy, err := storage.StrategyFor(backend.Type)
	if err != nil {
		return "", err
	}

	format := strategy.EffectiveFormat(req.Format)
	diskName := strategy.DiskName(req.VMID, req.Label, format)
	diskID := strategy.CanonicalID(req.Storage, req.VMID, diskName)

	u.log.WithFields(logrus.Fields{
		"storage": req.Storage,
		"type":    backend.Type,
		"disk":    diskID,
		"format":  format,
	}).Info("uploading image to storage")

	remotePath, err := u.session.UploadFile(ctx, req.SourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to transfer image: %w", err)
	}
	// The temporary file exists from here on; remove it on every exit
	// path. remotePath may still change below, the closure tracks it.
	defer func() { u.removeTemp(ctx, remotePath) }()

	remotePath, err = u.decompress(ctx, remotePath)
	if err != nil {
		return "", err
	}

	discoveredKiB, err := u.measure(ctx, remotePath)
	if err != nil {
		return "", err
	}

	sizeKiB := u.reconcileSize(req.SizeKiB, discoveredKiB)

	if err := u.allocate(ctx, req, diskName, diskID, sizeKiB, format); err != nil {
		return "", err
	}

	devicePath, err := u.resolvePath(ctx, diskID)
	if err != nil {
		return "", err
	}

	if err := u.convert(ctx, format, remotePath, devicePath); err != nil {
		return "", err
	}

	return diskID, nil
}

// decompress unpacks the remote file in place when its extension marks
// it as compressed, then verifies the remaining extension is a valid
// image type. It returns the tracked path, updated when the compression
// extension was stripped.
func (u *Uploader) decompress(ctx context.Context, remotePath string) (string, error) {
	if tool, ok := decompressors[path.Ext(remotePath)]; ok {
		u.log.Info("decompressing image")
		res, err := u.session.Execute(ctx, fmt.Sprintf("%s '%s'", tool, remotePath))
		if err != nil {
			return remotePath, fmt.Errorf("failed to decompress image: %w", err)
		}
		// The decompressors are silent on success; any output means
		// something went wrong even with a zero exit status.
		if res.Stdout != "" || res.Stderr != "" {
			return remotePath, &DecompressionError{commandOutput{Stdout: res.Stdout, Stderr: res.Stderr}}
		}
		remotePath = strings.TrimSuffix(remotePath, path.Ext(remotePath))
	}

	if !validImageExts[path.Ext(remotePath)] {
		return remotePath, &InvalidImageFormatError{Path: remotePath}
	}
	return remotePath, nil
}

// measure queries qemu-img for the image's virtual size and converts it
// to kilobytes, rounding up. A response that the expected token cannot
// be parsed from yields zero with a warning rather than a failure; the
// tool's output format is unversioned and this leniency is deliberate.
func (u *Uploader) measure(ctx context.Context, remotePath string) (int64, error) {
	res, err := u.session.Execute(ctx, fmt.Sprintf("qemu-img info '%s'", remotePath))
	if err != nil {
		return 0, fmt.Errorf("failed to inspect image: %w", err)
	}
	if res.Stdout == "" || res.Stderr != "" {
		return 0, &SizeDiscoveryError{commandOutput{Stdout: res.Stdout, Stderr: res.Stderr}}
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		if !strings.Contains(line, "virtual size") {
			continue
		}
		// e.g. "virtual size: 2 GiB (2147483648 bytes)"
		open := strings.Index(line, "(")
		if open < 0 {
			break
		}
		fields := strings.Fields(line[open+1:])
		if len(fields) == 0 {
			break
		}
		sizeBytes, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			break
		}
		return (sizeBytes + 1023) / 1024, nil
	}

	u.log.Warn("could not parse virtual size from image metadata, assuming 0")
	return 0, nil
}

// reconcileSize picks the effective disk size in kilobytes. A requested
// size wins only when it covers the discovered image size.
func (u *Uploader) reconcileSize(requestedKiB, discoveredKiB int64) int64 {
	if requestedKiB == 0 {
		u.log.Warnf("setting disk size to %dK", discoveredKiB)
		return discoveredKiB
	}
	if discoveredKiB > requestedKiB {
		u.log.Warnf("provided disk size was too small, increasing to %dK", discoveredKiB)
		return discoveredKiB
	}
	return requestedKiB
}

// allocate creates the disk on the backend. pvesm is differently
// verbose per backend, so success is the canonical name appearing in
// stdout or an empty stderr.
func (u *Uploader) allocate(ctx context.Context, req Request, diskName, diskID string, sizeKiB int64, format storage.Format) error {
	u.log.Info("allocating virtual disk")
	cmd := fmt.Sprintf("pvesm alloc '%s' %d '%s' %d -format %s",
		req.Storage, req.VMID, diskName, sizeKiB, format)
	res, err := u.session.Execute(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to allocate disk: %w", err)
	}
	if !strings.Contains(res.Stdout, diskID) && res.Stderr != "" {
		return &AllocationError{commandOutput{Stdout: res.Stdout, Stderr: res.Stderr}}
	}
	return nil
}

// resolvePath looks up the device or file path behind the canonical
// disk identifier.
func (u *Uploader) resolvePath(ctx context.Context, diskID string) (string, error) {
	res, err := u.session.Execute(ctx, fmt.Sprintf("pvesm path '%s'", diskID))
	if err != nil {
		return "", fmt.Errorf("failed to get path for disk: %w", err)
	}
	if res.Stderr != "" {
		return "", &PathResolutionError{commandOutput{Stdout: res.Stdout, Stderr: res.Stderr}}
	}
	return strings.TrimSpace(res.Stdout), nil
}

// convert writes the source image into the allocated disk in the
// strategy-selected output format.
func (u *Uploader) convert(ctx context.Context, format storage.Format, remotePath, devicePath string) error {
	u.log.Info("copying image into virtual disk")
	cmd := fmt.Sprintf("qemu-img convert -O %s '%s' %s", format, remotePath, devicePath)
	res, err := u.session.Execute(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to copy image into disk: %w", err)
	}
	if res.Stderr != "" {
		return &ConversionError{commandOutput{Stdout: res.Stdout, Stderr: res.Stderr}}
	}
	return nil
}

// removeTemp deletes the remote temporary file. Failures are logged
// only; they never override a pipeline error.
func (u *Uploader) removeTemp(ctx context.Context, remotePath string) {
	u.log.Info("removing temporary image file")
	if _, err := u.session.Execute(ctx, fmt.Sprintf("rm '%s'", remotePath)); err != nil {
		u.log.WithError(err).Warn("failed to remove remote temporary file")
	}
}
