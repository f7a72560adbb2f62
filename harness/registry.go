package harness

import (
	"sort"

	"github.com/samber/lo"

	"github.com/mlantern/camtest/harness/definitions"
	"github.com/mlantern/camtest/utils"
)

// CamSpec describes one supported camera model: which code-ROM content
// identities are known good, its Digic generation, and card/GUI traits.
type CamSpec struct {
	ROMs  []string `json:"roms"`
	Digic int      `json:"digic"`
	GUI   bool     `json:"gui"`
	SD    bool     `json:"sd"`
	CF    bool     `json:"cf"`
}

// Registry maps camera model names to their specs. It is external
// configuration data, injected into the harness rather than compiled in.
type Registry map[string]CamSpec

// LoadRegistry reads a registry from a JSON file.
func LoadRegistry(path string) (Registry, error) {
	var reg Registry
	if err := utils.JsonFile(path, &reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Models lists the registered model names, sorted.
func (r Registry) Models() []string {
	models := lo.Keys(r)
	sort.Strings(models)
	return models
}

// KnownROM reports whether md5 is a recognized code-ROM identity for the
// model.
func (r Registry) KnownROM(model, md5 string) bool {
	spec, ok := r[model]
	if !ok {
		return false
	}
	return lo.Contains(spec.ROMs, md5)
}

// SequenceTable maps a code-ROM content identity to the ordered key
// sequence that steps through its menus. Canon saves menu state into ROM,
// cursor position included, so every ROM dump needs its own sequence.
type SequenceTable map[string][]string

// LoadSequences reads a sequence table from a JSON file.
func LoadSequences(path string) (SequenceTable, error) {
	var table SequenceTable
	if err := utils.JsonFile(path, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// StepsFor returns the parsed input steps for a ROM identity.
func (t SequenceTable) StepsFor(md5 string) ([]definitions.InputStep, bool) {
	keys, ok := t[md5]
	if !ok {
		return nil, false
	}
	return definitions.ParseSequence(keys), true
}
