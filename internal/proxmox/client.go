// Package proxmox wraps the Proxmox VE management API behind the small
// set of operations provisioning needs.
package proxmox

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"strings"

	api "github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/sirupsen/logrus"

	"github.com/pvetools/pvedeploy/internal/storage"
)

// taskTimeoutSeconds bounds every API task the client waits on. This is
// a transport property, not a retry policy.
const taskTimeoutSeconds = 600

// supportedTypes are the backend types disks can be uploaded to.
var supportedTypes = map[storage.BackendType]bool{
	storage.TypeDir:     true,
	storage.TypeNFS:     true,
	storage.TypeLVM:     true,
	storage.TypeLVMThin: true,
}

// Client talks to one Proxmox cluster.
type Client struct {
	api *api.Client
	log *logrus.Entry
}

// NewClient connects and authenticates against the API endpoint.
// apiURL is the full base URL, e.g. https://pve1:8006/api2/json.
func NewClient(ctx context.Context, apiURL, user, password string, insecureTLS bool, log *logrus.Entry) (*Client, error) {
	tlsConf := &tls.Config{InsecureSkipVerify: insecureTLS}

	c, err := api.NewClient(apiURL, nil, "", tlsConf, "", taskTimeoutSeconds, false)
	if err != nil {
		return nil, &ApiError{Op: "connect", Err: err}
	}

	if err := c.Login(ctx, user, password, ""); err != nil {
		return nil, &ApiError{Op: "login", Err: err}
	}

	return &Client{api: c, log: log}, nil
}

// Nodes returns the names of all cluster nodes, sorted.
func (c *Client) Nodes(ctx context.Context) ([]string, error) {
	list, err := c.api.GetNodeList(ctx)
	if err != nil {
		return nil, &ApiError{Op: "list nodes", Err: err}
	}

	var nodes []string
	for _, item := range itemList(list) {
		if name, ok := item["node"].(string); ok {
			nodes = append(nodes, name)
		}
	}
	sort.Strings(nodes)
	return nodes, nil
}

// NodeStatus returns cpu and memory capacity for one node.
func (c *Client) NodeStatus(ctx context.Context, node string) (NodeStatus, error) {
	data, err := c.api.GetItemConfigMapStringInterface(ctx, "/nodes/"+node+"/status", "node", "STATUS")
	if err != nil {
		return NodeStatus{}, &ApiError{Op: "get node status", Err: err}
	}

	status := NodeStatus{}
	if cpuinfo, ok := data["cpuinfo"].(map[string]interface{}); ok {
		status.CPUs = int(asInt64(cpuinfo["cpus"]))
		status.Sockets = int(asInt64(cpuinfo["sockets"]))
	}
	if memory, ok := data["memory"].(map[string]interface{}); ok {
		status.MemoryBytes = asInt64(memory["total"])
	}
	return status, nil
}

// Storages lists the image-capable storage backends of a node, limited
// to the supported backend types.
func (c *Client) Storages(ctx context.Context, node string) ([]storage.Backend, error) {
	items, err := c.api.GetItemListInterfaceArray(ctx, "/nodes/"+node+"/storage")
	if err != nil {
		return nil, &ApiError{Op: "list storage", Err: err}
	}

	var backends []storage.Backend
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		content, _ := item["content"].(string)
		if !containsContent(content, "images") {
			continue
		}
		t, _ := item["type"].(string)
		if !supportedTypes[storage.BackendType(t)] {
			continue
		}
		name, _ := item["storage"].(string)
		backends = append(backends, storage.Backend{
			Name:  name,
			Type:  storage.BackendType(t),
			Total: asInt64(item["total"]),
			Used:  asInt64(item["used"]),
			Avail: asInt64(item["avail"]),
		})
	}

	sort.Slice(backends, func(i, j int) bool { return backends[i].Name < backends[j].Name })
	return backends, nil
}

// Storage fetches the current state of one named backend on a node.
func (c *Client) Storage(ctx context.Context, node, name string) (storage.Backend, error) {
	url := fmt.Sprintf("/nodes/%s/storage/%s/status", node, name)
	data, err := c.api.GetItemConfigMapStringInterface(ctx, url, "storage", "STATUS")
	if err != nil {
		return storage.Backend{}, &ApiError{Op: "get storage status", Err: err}
	}

	t, _ := data["type"].(string)
	return storage.Backend{
		Name:  name,
		Type:  storage.BackendType(t),
		Total: asInt64(data["total"]),
		Used:  asInt64(data["used"]),
		Avail: asInt64(data["avail"]),
	}, nil
}

// NextVMID returns the next free VM id in the cluster.
func (c *Client) NextVMID(ctx context.Context) (int, error) {
	id, err := c.api.GetNextID(ctx, nil)
	if err != nil {
		return 0, &ApiError{Op: "get next vmid", Err: err}
	}
	return int(id), nil
}

// CreateVM creates the VM skeleton described by spec: cpu, memory and a
// single virtio NIC on vmbr0, tagged when the spec carries a VLAN id.
// Disks are attached separately after upload.
func (c *Client) CreateVM(ctx context.Context, spec VmSpec) error {
	id := api.GuestID(spec.VMID)
	node := api.NodeName(spec.Node)
	name := api.GuestName(spec.Name)
	cores := api.QemuCpuCores(spec.CPUs)
	sockets := api.QemuCpuSockets(1)
	cpuType := api.CpuType(spec.CPUFamily)
	memory := api.QemuMemoryCapacity(spec.MemoryMB)

	bridge := "vmbr0"
	model := api.QemuNetworkModelVirtIO
	nic := api.QemuNetworkInterface{
		Model:  &model,
		Bridge: &bridge,
	}
	if spec.VLANTag > 0 {
		vlan := api.Vlan(spec.VLANTag)
		nic.NativeVlan = &vlan
	}

	cfg := api.ConfigQemu{
		ID:   &id,
		Node: &node,
		Name: &name,
		CPU: &api.QemuCPU{
			Cores:   &cores,
			Sockets: &sockets,
			Type:    &cpuType,
		},
		Memory: &api.QemuMemory{
			CapacityMiB: &memory,
		},
		Networks: api.QemuNetworkInterfaces{0: nic},
	}

	c.log.WithFields(logrus.Fields{
		"node": spec.Node,
		"vmid": spec.VMID,
		"name": spec.Name,
	}).Info("creating virtual machine")

	if _, err := cfg.Create(ctx, c.api); err != nil {
		return &ApiError{Op: "create vm", Err: err}
	}
	return nil
}

// SetVMConfig sets config fields on an existing VM.
func (c *Client) SetVMConfig(ctx context.Context, node string, vmid int, options map[string]interface{}) error {
	vmr := api.NewVmRef(api.GuestID(vmid))
	vmr.SetNode(node)

	if _, err := c.api.SetVmConfig(vmr, options); err != nil {
		return &ApiError{Op: "set vm config", Err: err}
	}
	return nil
}

// ResizeDisk grows a VM disk to the given absolute size in bytes.
func (c *Client) ResizeDisk(ctx context.Context, node string, vmid int, disk string, sizeBytes int64) error {
	vmr := api.NewVmRef(api.GuestID(vmid))
	vmr.SetNode(node)

	if _, err := c.api.ResizeQemuDiskRaw(ctx, vmr, disk, fmt.Sprintf("%d", sizeBytes)); err != nil {
		return &ApiError{Op: "resize disk", Err: err}
	}
	return nil
}

// StartVM starts a VM.
func (c *Client) StartVM(ctx context.Context, node string, vmid int) error {
	vmr := api.NewVmRef(api.GuestID(vmid))
	vmr.SetNode(node)

	if _, err := c.api.StartVm(ctx, vmr); err != nil {
		return &ApiError{Op: "start vm", Err: err}
	}
	return nil
}

// itemList unwraps the "data" array of a list response.
func itemList(response map[string]interface{}) []map[string]interface{} {
	data, ok := response["data"].([]interface{})
	if !ok {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(data))
	for _, raw := range data {
		if item, ok := raw.(map[string]interface{}); ok {
			items = append(items, item)
		}
	}
	return items
}

// asInt64 converts the numeric types the JSON decoder may produce.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// containsContent reports whether a comma-separated content list
// includes the given content type.
func containsContent(content, want string) bool {
	for _, c := range strings.Split(content, ",") {
		if strings.TrimSpace(c) == want {
			return true
		}
	}
	return false
}
