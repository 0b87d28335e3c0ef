package wizard

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed flows/*.yaml
var builtinFlows embed.FS

// ParseFlow decodes and checks a YAML flow definition.
func ParseFlow(data []byte) (*Flow, error) {
	var flow Flow
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&flow); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	if err := flow.normalize(); err != nil {
		return nil, err
	}
	return &flow, nil
}

// Catalog holds flow definitions by id.
type Catalog struct {
	flows map[string]*Flow
}

// LoadCatalog parses every *.yaml file in fsys.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	c := &Catalog{flows: make(map[string]*Flow, len(entries))}
	for _, name := range entries {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		flow, err := ParseFlow(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if want := strings.TrimSuffix(path.Base(name), ".yaml"); flow.ID != want {
			return nil, fmt.Errorf("%s: flow id %q does not match file name", name, flow.ID)
		}
		c.flows[flow.ID] = flow
	}
	return c, nil
}

// BuiltinCatalog returns the embedded buyer and seller onboarding flows.
func BuiltinCatalog() (*Catalog, error) {
	sub, err := fs.Sub(builtinFlows, "flows")
	if err != nil {
		return nil, err
	}
	return LoadCatalog(sub)
}

// Get returns a flow by id.
func (c *Catalog) Get(id string) (*Flow, bool) {
	f, ok := c.flows[id]
	return f, ok
}

// IDs returns the flow ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.flows))
	for id := range c.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
