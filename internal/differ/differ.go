// Package differ provides semantic comparison of rendered CloudFormation
// templates, used by `wetwire-aurora diff` and to check that re-declaring a
// cluster is idempotent.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sort"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-aurora-go"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons.
	IgnoreOrder bool
	// IgnoreOutputs skips the Outputs section.
	IgnoreOutputs bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    wetwire.TemplateDiff
	Summary wetwire.DiffSummary
	// Outputs lists added, removed or changed output names.
	Outputs []string
}

// Empty reports whether the templates are equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0 && len(r.Outputs) == 0
}

// Compare compares two CloudFormation templates and returns differences.
func Compare(before, after *wetwire.Template, opts Options) (*Result, error) {
	if before == nil || after == nil {
		return nil, fmt.Errorf("compare: nil template")
	}
	result := &Result{}

	for _, name := range sortedKeys(after.Resources) {
		if _, exists := before.Resources[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{
				Resource: name,
				Type:     after.Resources[name].Type,
			})
		}
	}

	for _, name := range sortedKeys(before.Resources) {
		def1 := before.Resources[name]
		def2, exists := after.Resources[name]
		if !exists {
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{
				Resource: name,
				Type:     def1.Type,
			})
			continue
		}
		if changes := compareResources(def1, def2, opts); len(changes) > 0 {
			result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{
				Resource: name,
				Type:     def1.Type,
				Changes:  changes,
			})
		}
	}

	if !opts.IgnoreOutputs {
		result.Outputs = compareOutputs(before.Outputs, after.Outputs, opts)
	}

	result.Summary = wetwire.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*wetwire.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a JSON or YAML template.
func Parse(data []byte) (*wetwire.Template, error) {
	var template wetwire.Template
	if err := json.Unmarshal(data, &template); err != nil {
		template = wetwire.Template{}
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}
	return &template, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 wetwire.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !slices.Equal(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %s → %s", def1.DeletionPolicy, def2.DeletionPolicy))
	}

	return changes
}

// compareProperties compares property maps, descending into nested maps so
// changes are reported at the deepest differing key.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := join(prefix, key)

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}
		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", join(prefix, key)))
		}
	}

	sort.Strings(changes)
	return changes
}

// PropertyChanges lists the property paths that differ between two resource
// input maps.
func PropertyChanges(before, after map[string]any) []string {
	return compareProperties("", before, after, Options{})
}

// compareOutputs returns the names of outputs that differ.
func compareOutputs(before, after map[string]wetwire.Output, opts Options) []string {
	names := lo.Uniq(append(lo.Keys(before), lo.Keys(after)...))
	changed := lo.Filter(names, func(name string, _ int) bool {
		o1, ok1 := before[name]
		o2, ok2 := after[name]
		if ok1 != ok2 {
			return true
		}
		return !deepEqual(jsonValue(o1.Value), jsonValue(o2.Value), opts)
	})
	sort.Strings(changed)
	return changed
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by their JSON encoding, recursively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := lo.Map(val, func(item any, _ int) any { return normalizeValue(item) })
		sort.SliceStable(result, func(i, j int) bool {
			return encode(result[i]) < encode(result[j])
		})
		return result
	case map[string]any:
		return lo.MapValues(val, func(item any, _ string) any { return normalizeValue(item) })
	default:
		return v
	}
}

// jsonValue converts v to its plain JSON form so intrinsics built in Go
// compare equal to ones parsed from a file.
func jsonValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func encode(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
