// Package catalog builds the browsable gem type hierarchy used by the
// stores page, with marketplace search links for every entry.
package catalog

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fmuoria/gems-hub/internal/models"
)

// DefaultSearchURL is the Gem Rock Auctions search endpoint
const DefaultSearchURL = "https://www.gemrockauctions.com/search?query="

// Gem is a searchable gem type inside a group
type Gem struct {
	DisplayName string `json:"display_name"`
	SearchName  string `json:"search_name"`
	SearchURL   string `json:"search_url"`
}

// Group is a top-level entry of a section. A standalone gem is a group
// without members.
type Group struct {
	Name       string `json:"group_name"`
	SearchName string `json:"group_search_name"`
	SearchURL  string `json:"search_url"`
	Gems       []Gem  `json:"gems"`
}

// Section is a titled list of groups, in file order
type Section struct {
	Name   string  `json:"section_name"`
	Groups []Group `json:"gem_groups"`
}

// Catalog is the full hierarchy
type Catalog struct {
	Sections      []Section `json:"sections"`
	SearchBaseURL string    `json:"search_base_url"`
}

// entry is one list item of a section: either a bare gem name or a
// single-key mapping of group name to member names
type entry struct {
	name    string
	members []string
	isGroup bool
}

func (e *entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.name = node.Value
		return nil
	case yaml.MappingNode:
		if len(node.Content) < 2 {
			return fmt.Errorf("line %d: empty gem group", node.Line)
		}
		e.isGroup = true
		e.name = node.Content[0].Value
		return node.Content[1].Decode(&e.members)
	default:
		return fmt.Errorf("line %d: unexpected gem entry", node.Line)
	}
}

// Load reads a hierarchy file
func Load(path, searchBase string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gem types file: %w", err)
	}
	return Parse(data, searchBase)
}

// Parse decodes a hierarchy document. Sections keep their file order and
// empty sections are left out.
func Parse(data []byte, searchBase string) (*Catalog, error) {
	if searchBase == "" {
		searchBase = DefaultSearchURL
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse gem types file: %w", err)
	}

	cat := &Catalog{SearchBaseURL: searchBase}
	if len(doc.Content) == 0 {
		return cat, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("gem types file must be a mapping of sections")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		var entries []entry
		if err := root.Content[i+1].Decode(&entries); err != nil {
			return nil, fmt.Errorf("section %q: %w", root.Content[i].Value, err)
		}
		if len(entries) == 0 {
			continue
		}

		section := Section{Name: root.Content[i].Value}
		for _, e := range entries {
			section.Groups = append(section.Groups, buildGroup(e, searchBase))
		}
		cat.Sections = append(cat.Sections, section)
	}

	return cat, nil
}

func buildGroup(e entry, searchBase string) Group {
	if !e.isGroup {
		name := stripQualifiers(e.name)
		search := SearchName(name)
		return Group{Name: name, SearchName: search, SearchURL: SearchURL(searchBase, search), Gems: []Gem{}}
	}

	search := strings.TrimSpace(strings.NewReplacer(" Group", "", " Family", "").Replace(e.name))
	g := Group{
		Name:       e.name,
		SearchName: search,
		SearchURL:  SearchURL(searchBase, search),
		Gems:       make([]Gem, 0, len(e.members)),
	}
	for _, m := range e.members {
		s := SearchName(m)
		g.Gems = append(g.Gems, Gem{DisplayName: m, SearchName: s, SearchURL: SearchURL(searchBase, s)})
	}
	return g
}

func stripQualifiers(name string) string {
	return strings.TrimSpace(strings.NewReplacer(" (Protected)", "", " (Bixbite)", "").Replace(name))
}

// SearchName drops qualifiers and any parenthetical suffix:
// "Red Beryl (Bixbite)" and "Red Beryl (Utah)" both search for "Red Beryl".
func SearchName(name string) string {
	name = stripQualifiers(name)
	if i := strings.Index(name, "("); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

// SearchURL appends the query-escaped name to base
func SearchURL(base, name string) string {
	return base + url.QueryEscape(name)
}

// FromGems groups gem types by mineral group. Gems without a group are
// listed individually under "Other Gemstones".
func FromGems(gems []models.GemType, searchBase string) *Catalog {
	if searchBase == "" {
		searchBase = DefaultSearchURL
	}

	byGroup := make(map[string][]string)
	var loose []string
	for _, g := range gems {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		group := strings.TrimSpace(g.MineralGroup)
		if group == "" {
			loose = append(loose, name)
			continue
		}
		byGroup[group] = append(byGroup[group], name)
	}

	groupNames := make([]string, 0, len(byGroup))
	for name := range byGroup {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	cat := &Catalog{SearchBaseURL: searchBase}
	if len(groupNames) > 0 {
		section := Section{Name: "Gemstones by Mineral Group"}
		for _, name := range groupNames {
			members := byGroup[name]
			sort.Strings(members)
			section.Groups = append(section.Groups, buildGroup(entry{name: name, members: members, isGroup: true}, searchBase))
		}
		cat.Sections = append(cat.Sections, section)
	}
	if len(loose) > 0 {
		sort.Strings(loose)
		section := Section{Name: "Other Gemstones"}
		for _, name := range loose {
			section.Groups = append(section.Groups, buildGroup(entry{name: name}, searchBase))
		}
		cat.Sections = append(cat.Sections, section)
	}

	return cat
}
