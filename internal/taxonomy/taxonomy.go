// Package taxonomy loads the journal taxonomy served by GET /api/v1/journals.
//
// File layout:
//
//	domains:
//	  is:
//	    label: Information Systems
//	    journals: [MIS Quarterly, {name: Information Systems Research}]
//	    subdomains:
//	      hci: {label: Human-Computer Interaction, journals: [...]}
package taxonomy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Domain is one node of the taxonomy tree.
type Domain struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Journals   []string `json:"journals"`
	Subdomains []Domain `json:"subdomains"`
}

// Tree is the rendered taxonomy.
type Tree struct {
	Domains []Domain `json:"domains"`
}

type fileYAML struct {
	Domains map[string]nodeYAML `yaml:"domains"`
}

type nodeYAML struct {
	Label      string              `yaml:"label"`
	Journals   []journalYAML       `yaml:"journals"`
	Subdomains map[string]nodeYAML `yaml:"subdomains"`
}

// journalYAML accepts either a bare name or a {name: ...} mapping.
type journalYAML string

func (j *journalYAML) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*j = journalYAML(value.Value)
		return nil
	case yaml.MappingNode:
		var m struct {
			Name string `yaml:"name"`
		}
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("decode journal: %w", err)
		}
		*j = journalYAML(m.Name)
		return nil
	default:
		return fmt.Errorf("journal entry at line %d: unsupported yaml kind", value.Line)
	}
}

// Load reads the taxonomy file at path. A missing file yields an empty tree.
func Load(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Tree{Domains: []Domain{}}, nil
		}
		return Tree{}, fmt.Errorf("read taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse builds a tree from YAML. Domains and subdomains are sorted by label
// (case-insensitive); journal names are trimmed, de-duplicated and sorted.
func Parse(data []byte) (Tree, error) {
	var f fileYAML
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Tree{}, fmt.Errorf("parse taxonomy: %w", err)
	}
	return Tree{Domains: buildLevel(f.Domains)}, nil
}

func buildLevel(nodes map[string]nodeYAML) []Domain {
	out := make([]Domain, 0, len(nodes))
	for key, n := range nodes {
		out = append(out, buildNode(key, n))
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Label), strings.ToLower(out[j].Label)
		if li != lj {
			return li < lj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func buildNode(key string, n nodeYAML) Domain {
	label := n.Label
	if label == "" {
		label = key
	}

	seen := make(map[string]struct{}, len(n.Journals))
	journals := make([]string, 0, len(n.Journals))
	for _, j := range n.Journals {
		name := strings.TrimSpace(string(j))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		journals = append(journals, name)
	}
	slices.Sort(journals)

	return Domain{
		Key:        key,
		Label:      label,
		Journals:   journals,
		Subdomains: buildLevel(n.Subdomains),
	}
}

// Journals returns every journal name in the tree, sorted and de-duplicated.
func (t Tree) Journals() []string {
	var all []string
	var walk func([]Domain)
	walk = func(ds []Domain) {
		for _, d := range ds {
			all = append(all, d.Journals...)
			walk(d.Subdomains)
		}
	}
	walk(t.Domains)
	slices.Sort(all)
	return slices.Compact(all)
}
