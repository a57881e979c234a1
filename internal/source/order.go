package source

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Order maps a chain name to its provider names, in try order.
type Order map[string][]string

// LoadOrder reads a YAML chain file of the form
//
//	chains:
//	  profile: [places, profile_link]
//	  fetch: [local_http, firecrawl]
//
// Chains not listed keep their default order.
func LoadOrder(path string) (Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read chain file %s", path)
	}

	var wrapper struct {
		Chains Order `yaml:"chains"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "source: parse chain file")
	}
	return wrapper.Chains, nil
}

type reorderable interface {
	Name() string
	Reorder(order []string)
}

// Apply reorders every chain named in o.
func (o Order) Apply(chains ...reorderable) {
	for _, c := range chains {
		if names, ok := o[c.Name()]; ok {
			c.Reorder(names)
		}
	}
}

// reorderNamed keeps the items named in order, in that order. Unknown names
// are logged and skipped. An empty order returns items unchanged.
func reorderNamed[T any](items []T, order []string, chain string, name func(T) string) []T {
	if len(order) == 0 {
		return items
	}
	byName := make(map[string]T, len(items))
	for _, it := range items {
		byName[name(it)] = it
	}
	out := make([]T, 0, len(order))
	for _, n := range order {
		it, ok := byName[n]
		if !ok {
			zap.L().Warn("source: unknown provider in chain order",
				zap.String("chain", chain),
				zap.String("provider", n),
			)
			continue
		}
		out = append(out, it)
		delete(byName, n)
	}
	return out
}
