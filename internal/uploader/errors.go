package uploader

import (
	"fmt"
	"strings"
)

// commandOutput carries the captured streams of the remote command that
// caused a pipeline step to fail.
type commandOutput struct {
	Stdout string
	Stderr string
}

// CommandOutput returns the captured stdout and stderr streams.
func (o commandOutput) CommandOutput() (stdout, stderr string) {
	return o.Stdout, o.Stderr
}

func (o commandOutput) detail() string {
	if s := strings.TrimSpace(o.Stderr); s != "" {
		return ": " + s
	}
	return ""
}

// DecompressionError reports a decompressor that produced output on
// either stream; the decompressors used here are silent on success.
type DecompressionError struct {
	commandOutput
}

func (e *DecompressionError) Error() string {
	return "failed to decompress image" + e.detail()
}

// InvalidImageFormatError reports a source image whose extension, after
// any decompression, is not a recognized disk image type.
type InvalidImageFormatError struct {
	Path string
}

func (e *InvalidImageFormatError) Error() string {
	return fmt.Sprintf("image %q is not of a valid type (%s)", e.Path, strings.Join(validImageExtensions(), ", "))
}

// SizeDiscoveryError reports a metadata query that produced no stdout
// or any stderr.
type SizeDiscoveryError struct {
	commandOutput
}

func (e *SizeDiscoveryError) Error() string {
	return "failed to get virtual disk size" + e.detail()
}

// AllocationError reports a disk allocation the success heuristic
// rejected.
type AllocationError struct {
	commandOutput
}

func (e *AllocationError) Error() string {
	return "failed to allocate disk" + e.detail()
}

// PathResolutionError reports a path lookup that wrote to stderr.
type PathResolutionError struct {
	commandOutput
}

func (e *PathResolutionError) Error() string {
	return "failed to get path for disk" + e.detail()
}

// ConversionError reports an image conversion that wrote to stderr.
type ConversionError struct {
	commandOutput
}

func (e *ConversionError) Error() string {
	return "failed to copy image into disk" + e.detail()
}
