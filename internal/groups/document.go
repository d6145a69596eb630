package groups

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// MembersKey is the list of externally synchronized members, the only list this package mutates.
const MembersKey = "entraid_human_identities"

// Group is the typed view of a group document.
type Group struct {
	Name                   string   `yaml:"name"`
	Contact                string   `yaml:"contact"`
	Type                   string   `yaml:"type"`
	HumanIdentities        []string `yaml:"human_identities"`
	ApplicationIdentities  []string `yaml:"application_identities"`
	EntraIDHumanIdentities []string `yaml:"entraid_human_identities"`
	SubGroups              []string `yaml:"sub_groups"`
	IdentityGroupPolicies  []string `yaml:"identity_group_policies"`
}

// HasMember reports whether name is in the externally synchronized list.
func (g *Group) HasMember(name string) bool {
	return slices.Contains(g.EntraIDHumanIdentities, name)
}

// document is a parsed group file. The raw node tree is kept so that a
// rewrite only touches the members list and leaves everything else as it was.
type document struct {
	path  string
	rel   string
	root  yaml.Node
	group Group
}

func readDocument(path, rel string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return parseDocument(data, path, rel)
}

func parseDocument(data []byte, path, rel string) (*document, error) {
	d := &document{path: path, rel: rel}

	dec := yaml.NewDecoder(bytes.NewReader(data))

	err := dec.Decode(&d.root)

	switch {
	case errors.Is(err, io.EOF):
		return nil, fmt.Errorf("%s: %w", rel, ErrNotMapping)
	case err != nil:
		return nil, fmt.Errorf("parse %s: %w", rel, err)
	}

	// a rewrite would drop every document after the first
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", rel, ErrMultipleDocuments)
	}

	if d.mapping() == nil {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotMapping)
	}

	if err := d.root.Decode(&d.group); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rel, err)
	}

	if d.group.Name == "" {
		return nil, fmt.Errorf("%s: %w", rel, ErrEmptyGroupName)
	}

	return d, nil
}

func (d *document) mapping() *yaml.Node {
	if d.root.Kind != yaml.DocumentNode || len(d.root.Content) == 0 {
		return nil
	}

	if m := d.root.Content[0]; m.Kind == yaml.MappingNode {
		return m
	}

	return nil
}

// setMembers replaces the members list with the sorted, deduplicated members.
func (d *document) setMembers(members []string) {
	members = normalize(members)

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(members) == 0 {
		seq.Style = yaml.FlowStyle
	}

	for _, m := range members {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m})
	}

	m := d.mapping()
	replaced := false

	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == MembersKey {
			// keep comments attached to the old value
			old := m.Content[i+1]
			seq.HeadComment, seq.LineComment, seq.FootComment = old.HeadComment, old.LineComment, old.FootComment
			m.Content[i+1] = seq
			replaced = true

			break
		}
	}

	if !replaced {
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: MembersKey}, seq)
	}

	d.group.EntraIDHumanIdentities = members
}

func (d *document) encode() ([]byte, error) {
	return encodeYAML(&d.root)
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// normalize returns a sorted copy of members without duplicates.
func normalize(members []string) []string {
	out := slices.Clone(members)
	slices.Sort(out)

	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}

	return out
}
