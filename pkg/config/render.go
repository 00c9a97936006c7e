package config

import (
	"bytes"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"orgsync/pkg/model"
)

// Render emits the organization tree as a configuration document. Only
// fields that are set and differ from their descriptor default are
// written, so importing a live organization produces the minimal document
// that reproduces it. Provider-assigned and read-only fields never
// appear. Field order follows the descriptor tables.
func Render(org *model.Organization) ([]byte, error) {
	root := newMapping()
	if err := appendScalar(root, "github_id", org.GitHubID); err != nil {
		return nil, err
	}

	if org.Settings != nil {
		if err := appendObject(root, "settings", org.Settings); err != nil {
			return nil, err
		}
	}
	if org.WorkflowSettings != nil {
		if err := appendObject(root, "workflows", org.WorkflowSettings); err != nil {
			return nil, err
		}
	}
	if err := appendWebhookSeq(root, org.Webhooks); err != nil {
		return nil, err
	}
	if err := appendSecretSeq(root, org.Secrets); err != nil {
		return nil, err
	}

	if len(org.Repositories) > 0 {
		seq := newSequence()
		for _, repo := range org.Repositories {
			node, err := repositoryNode(repo)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, node)
		}
		appendPair(root, "repositories", seq)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, errors.Wrap(err, "encoding organization configuration")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding organization configuration")
	}
	return buf.Bytes(), nil
}

func repositoryNode(repo *model.Repository) (*yaml.Node, error) {
	node, err := objectNode(repo)
	if err != nil {
		return nil, err
	}
	if repo.Workflows != nil {
		if err := appendObject(node, "workflows", repo.Workflows); err != nil {
			return nil, err
		}
	}
	if len(repo.Webhooks) > 0 {
		seq := newSequence()
		for _, hook := range repo.Webhooks {
			n, err := objectNode(hook)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		appendPair(node, "webhooks", seq)
	}
	if len(repo.Secrets) > 0 {
		seq := newSequence()
		for _, secret := range repo.Secrets {
			n, err := objectNode(secret)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		appendPair(node, "secrets", seq)
	}
	if len(repo.Environments) > 0 {
		seq := newSequence()
		for _, env := range repo.Environments {
			n, err := objectNode(env)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		appendPair(node, "environments", seq)
	}
	if len(repo.BranchProtectionRules) > 0 {
		seq := newSequence()
		for _, rule := range repo.BranchProtectionRules {
			n, err := objectNode(rule)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		appendPair(node, "branch_protection_rules", seq)
	}
	return node, nil
}

// objectNode renders an entity's scalar fields into a mapping node.
func objectNode(o model.ModelObject) (*yaml.Node, error) {
	node := newMapping()
	for _, d := range o.Fields() {
		if d.Nested || d.ExternalOnly || d.ReadOnly {
			continue
		}
		r := d.GetRaw(o)
		if r.State != model.Set || isDefaultValue(d, r) {
			continue
		}
		value, err := encodeValue(r.V)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", d.Name)
		}
		appendPair(node, d.Name, value)
	}
	return node, nil
}

// isDefaultValue reports whether r matches the field's default. A field
// without a declared default falls back to its type's zero value, so an
// imported document stays free of empty strings and empty lists.
func isDefaultValue(d model.FieldDescriptor, r model.Raw) bool {
	def := d.Default
	if def == nil {
		switch d.Type {
		case model.TypeString:
			def = ""
		case model.TypeBool:
			def = false
		case model.TypeInt:
			def = 0
		case model.TypeStringList:
			list, ok := r.V.([]string)
			return ok && len(list) == 0
		}
	}
	return r.Equal(model.RawOf(def))
}

func appendObject(parent *yaml.Node, key string, o model.ModelObject) error {
	node, err := objectNode(o)
	if err != nil {
		return err
	}
	if len(node.Content) == 0 {
		return nil
	}
	appendPair(parent, key, node)
	return nil
}

func appendWebhookSeq(parent *yaml.Node, hooks []*model.OrganizationWebhook) error {
	if len(hooks) == 0 {
		return nil
	}
	seq := newSequence()
	for _, hook := range hooks {
		n, err := objectNode(hook)
		if err != nil {
			return err
		}
		seq.Content = append(seq.Content, n)
	}
	appendPair(parent, "webhooks", seq)
	return nil
}

func appendSecretSeq(parent *yaml.Node, secrets []*model.OrganizationSecret) error {
	if len(secrets) == 0 {
		return nil
	}
	seq := newSequence()
	for _, secret := range secrets {
		n, err := objectNode(secret)
		if err != nil {
			return err
		}
		seq.Content = append(seq.Content, n)
	}
	appendPair(parent, "secrets", seq)
	return nil
}

func appendScalar(parent *yaml.Node, key string, v any) error {
	node, err := encodeValue(v)
	if err != nil {
		return err
	}
	appendPair(parent, key, node)
	return nil
}

func appendPair(parent *yaml.Node, key string, value *yaml.Node) {
	parent.Content = append(parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func encodeValue(v any) (*yaml.Node, error) {
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return node, nil
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}
