package columns

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

type Entry struct {
	Keywords []string
	Weight   int
}

// Dictionary maps every column type to its header vocabulary and weight.
// It is indexed by internal.ColumnType so lookups never miss a type.
type Dictionary struct {
	entries [internal.ColUnknown + 1]Entry
}

func Default() *Dictionary {
	d := &Dictionary{}
	for _, t := range internal.AllColumnTypes() {
		w, ok := builtinWeights[t]
		if !ok {
			w = metadataWeight
		}
		kws := make([]string, 0, len(builtinKeywords[t]))
		for _, k := range builtinKeywords[t] {
			kws = append(kws, util.NormalizeKey(k))
		}
		d.entries[t] = Entry{Keywords: kws, Weight: w}
	}
	d.entries[internal.ColUnknown] = Entry{Weight: 0}
	return d
}

func (d *Dictionary) Weight(t internal.ColumnType) int {
	if t < 0 || t > internal.ColUnknown {
		return 0
	}
	return d.entries[t].Weight
}

func (d *Dictionary) Keywords(t internal.ColumnType) []string {
	if t < 0 || t > internal.ColUnknown {
		return nil
	}
	return d.entries[t].Keywords
}

// Extend adds keywords from a YAML file of the form
//
//	quantity: [menge, anzahl]
//	description: [bezeichnung]
//
// Keys are column type names as produced by ColumnType.String.
func (d *Dictionary) Extend(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read vocabulary: %w", err)
	}
	return d.ExtendYAML(data)
}

func (d *Dictionary) ExtendYAML(data []byte) error {
	var extra map[string][]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("parse vocabulary: %w", err)
	}
	for name, words := range extra {
		t, ok := internal.ParseColumnType(name)
		if !ok || t == internal.ColUnknown {
			return fmt.Errorf("unknown column type %q", name)
		}
		for _, w := range words {
			key := util.NormalizeKey(w)
			if key == "" || d.contains(t, key) {
				continue
			}
			d.entries[t].Keywords = append(d.entries[t].Keywords, key)
		}
	}
	return nil
}

func (d *Dictionary) contains(t internal.ColumnType, key string) bool {
	for _, k := range d.entries[t].Keywords {
		if k == key {
			return true
		}
	}
	return false
}
