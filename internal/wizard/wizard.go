// Package wizard gathers the provisioning parameters interactively.
//
// It builds question trees over the capacity data of the target
// cluster, collects the answers, and translates them into the
// provisioner's parameters.
package wizard

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pvetools/pvedeploy/internal/cloudinit"
	"github.com/pvetools/pvedeploy/internal/provision"
	"github.com/pvetools/pvedeploy/internal/proxmox"
	"github.com/pvetools/pvedeploy/internal/questions"
	"github.com/pvetools/pvedeploy/internal/storage"
)

// CPUFamilies are the CPU types the hypervisor can emulate.
var CPUFamilies = []string{
	"486", "athlon", "pentium", "pentium2", "pentium3", "coreduo", "core2duo",
	"kvm32", "kvm64", "qemu32", "qemu64", "phenom", "Conroe", "Penryn",
	"Nehalem", "Westmere", "SandyBridge", "IvyBridge", "Haswell", "Broadwell",
	"Opteron_G1", "Opteron_G2", "Opteron_G3", "Opteron_G4", "Opteron_G5",
	"host",
}

// imageExtensions are the cloud image files offered for deployment,
// either plain disk images or compressed ones.
var imageExtensions = map[string]bool{
	".iso": true, ".img": true, ".qcow2": true, ".raw": true,
	".xz": true, ".gz": true, ".bz2": true,
}

// vmNamePattern matches a valid VM name: alphanumeric with hyphens,
// starting and ending alphanumeric.
var vmNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// capacityAPI is the read-only slice of the management API the wizard
// queries while building its questions.
type capacityAPI interface {
	Nodes(ctx context.Context) ([]string, error)
	NodeStatus(ctx context.Context, node string) (proxmox.NodeStatus, error)
	Storages(ctx context.Context, node string) ([]storage.Backend, error)
	NextVMID(ctx context.Context) (int, error)
}

// Run asks all provisioning questions and returns the answer index.
// Prompt errors, including the user aborting, are returned unchanged.
func Run(ctx context.Context, api capacityAPI, imagesDir string) (*questions.Answers, error) {
	nodes, err := api.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("cluster reports no nodes")
	}

	answers := questions.NewAnswers()

	// Node and storage are asked up front: the capacity limits of the
	// remaining questions depend on them.
	node := nodes[0]
	if len(nodes) > 1 {
		v, err := questions.Select{
			Title:   "Proxmox Node to create VM on",
			Options: nodes,
			Default: nodes[0],
		}.Ask(ctx)
		if err != nil {
			return nil, err
		}
		node = v.(string)
	}

	backends, err := api.Storages(ctx, node)
	if err != nil {
		return nil, err
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("node %s has no image-capable storage", node)
	}

	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name
	}
	v, err := questions.Select{
		Title:   "Storage to create disk on",
		Options: names,
		Default: names[0],
	}.Ask(ctx)
	if err != nil {
		return nil, err
	}
	chosenStorage := v.(string)

	status, err := api.NodeStatus(ctx, node)
	if err != nil {
		return nil, err
	}

	nextID, err := api.NextVMID(ctx)
	if err != nil {
		return nil, err
	}

	images, err := listImages(imagesDir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no cloud images found in %s", imagesDir)
	}

	tree := []questions.Node{
		questions.NewPrompt("node", questions.Fixed{Value: node}),
		questions.NewPrompt("storage", questions.Fixed{Value: chosenStorage}),
		questions.NewGroup(
			questions.NewPrompt("cpu", questions.Int{
				Title: "Amount of CPUs", Min: 1, Max: status.MaxCPUs(),
			}),
			questions.NewPrompt("cpu_family", questions.Select{
				Title: "Emulate which CPU family", Options: CPUFamilies, Default: "host",
			}),
			questions.NewPrompt("memory", questions.Int{
				Title: "Amount of Memory (MB)", Min: 32, Max: status.MaxMemoryMB(),
			}),
			questions.NewPrompt("disk", questions.Int{
				Title: "Size of disk (GB)", Min: 4, Max: maxDiskGB(backends, chosenStorage),
			}),
			questions.NewPrompt("vmid", questions.Int{
				Title: "Virtual Machine id", Min: 1, Default: nextID,
			}),
		),
		questions.NewGroup(
			questions.NewPrompt("name", questions.Input{
				Title:    "Name of the VM",
				Validate: validateVMName,
			}),
			questions.NewPrompt("image", questions.Select{
				Title: "Cloud image to deploy", Options: images,
			}),
			questions.NewPrompt("ssh_key_file", questions.Input{
				Title:    "SSH public key file for the default user",
				Default:  defaultSSHKeyPath(),
				Validate: validateFileExists,
			}),
			questions.NewPrompt("use_vlan", questions.Confirm{
				Title: "Attach the network interface to a VLAN?",
			}),
			questions.NewConditional(questions.WhenTrue("use_vlan"),
				questions.NewPrompt("vlan_id", questions.Int{
					Title: "VLAN id", Min: 1, Max: 4094,
				}),
			),
			questions.NewPrompt("start_vm", questions.Confirm{
				Title: "Start the VM after provisioning?", Default: true,
			}),
		),
	}

	if err := questions.Collect(ctx, tree, answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// BuildParams translates collected answers into provisioning
// parameters. The requested disk size moves from gigabytes to the
// kilobytes tracked internally.
func BuildParams(answers *questions.Answers, imagesDir string) (provision.Params, error) {
	sshKey, err := os.ReadFile(answers.String("ssh_key_file"))
	if err != nil {
		return provision.Params{}, fmt.Errorf("failed to read SSH public key: %w", err)
	}

	spec := proxmox.VmSpec{
		Node:      answers.String("node"),
		VMID:      answers.Int("vmid"),
		Name:      answers.String("name"),
		CPUs:      answers.Int("cpu"),
		CPUFamily: answers.String("cpu_family"),
		MemoryMB:  answers.Int("memory"),
	}
	if answers.Bool("use_vlan") {
		spec.VLANTag = answers.Int("vlan_id")
	}

	return provision.Params{
		Spec:        spec,
		Storage:     answers.String("storage"),
		ImagePath:   filepath.Join(imagesDir, answers.String("image")),
		DiskSizeKiB: int64(answers.Int("disk")) * 1024 * 1024,
		Seed: cloudinit.Params{
			Name:    answers.String("name"),
			SSHKeys: []string{strings.TrimSpace(string(sshKey))},
		},
		StartVM: answers.Bool("start_vm"),
	}, nil
}

// listImages returns the deployable image files in dir, sorted.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cloud images: %w", err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[path.Ext(entry.Name())] {
			images = append(images, entry.Name())
		}
	}
	sort.Strings(images)
	return images, nil
}

// maxDiskGB returns the free space of the chosen backend in whole
// gigabytes.
func maxDiskGB(backends []storage.Backend, name string) int {
	for _, b := range backends {
		if b.Name == name {
			return int(b.Avail / (1024 * 1024 * 1024))
		}
	}
	return 0
}

func validateVMName(name string) error {
	if !vmNamePattern.MatchString(name) {
		return fmt.Errorf("name must start and end with a lowercase alphanumeric character and contain only alphanumerics and hyphens")
	}
	return nil
}

func validateFileExists(p string) error {
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("file does not exist: %s", p)
	}
	return nil
}

func defaultSSHKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_rsa.pub")
}
