// Package cloudinit builds NoCloud seed images for first-boot guest
// provisioning.
//
// The seed is an ISO image holding two files, user-data and meta-data,
// with volume id "cidata" as required by the cloud-init NoCloud
// datasource.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Params carries the guest configuration rendered into the seed.
type Params struct {
	// Name is the VM name; the guest hostname derives from it.
	Name string
	// FQDN overrides the derived hostname when set.
	FQDN string
	// SSHKeys are authorized public keys for the default user.
	SSHKeys []string
	// RootPasswordHash sets the root password when non-empty.
	RootPasswordHash string
}

// userData is the cloud-config document, marshaled to YAML behind the
// "#cloud-config" header.
type userData struct {
	Hostname          string    `yaml:"hostname"`
	FQDN              string    `yaml:"fqdn"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Chpasswd          *chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
}

type chpasswd struct {
	Expire bool   `yaml:"expire"`
	List   string `yaml:"list"`
}

type metaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData renders the user-data document for the seed.
func GenerateUserData(p Params) (string, error) {
	if p.Name == "" {
		return "", fmt.Errorf("vm name is required")
	}

	hostname := p.Name
	fqdn := p.Name
	if p.FQDN != "" {
		fqdn = p.FQDN
		hostname = strings.SplitN(fqdn, ".", 2)[0]
	}

	doc := userData{
		Hostname:          hostname,
		FQDN:              fqdn,
		SSHAuthorizedKeys: p.SSHKeys,
		SSHPasswordAuth:   false,
	}
	if p.RootPasswordHash != "" {
		doc.Chpasswd = &chpasswd{
			Expire: false,
			List:   fmt.Sprintf("root:%s", p.RootPasswordHash),
		}
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data: %w", err)
	}

	// The #cloud-config header is required by the cloud-init format.
	return "#cloud-config\n" + string(out), nil
}

// GenerateMetaData renders the meta-data document for the seed. The
// instance id is unique per seed so cloud-init reruns on redeploys.
func GenerateMetaData(p Params) (string, error) {
	if p.Name == "" {
		return "", fmt.Errorf("vm name is required")
	}

	hostname := p.Name
	if p.FQDN != "" {
		hostname = strings.SplitN(p.FQDN, ".", 2)[0]
	}

	doc := metaData{
		InstanceID:    fmt.Sprintf("iid-%s", uuid.NewString()),
		LocalHostname: hostname,
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data: %w", err)
	}
	return string(out), nil
}
