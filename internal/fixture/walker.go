package fixture

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Walker selects entity items from decoded JSON or YAML documents with
// JSONPath. Parsed selectors are cached, since every item of a document is
// walked with the same handful of entity sources.
type Walker struct {
	paths map[string]jp.Expr
}

func NewWalker() *Walker {
	return &Walker{paths: make(map[string]jp.Expr)}
}

// Query returns the objects selector picks out of root. Every selected item
// must be an object; its keys become field values.
func (w *Walker) Query(root any, selector string) ([]map[string]any, error) {
	x, ok := w.paths[selector]
	if !ok {
		var err error
		if x, err = jp.ParseString(selector); err != nil {
			return nil, fmt.Errorf("invalid jsonpath %q: %w", selector, err)
		}
		w.paths[selector] = x
	}

	found := x.Get(root)
	items := make([]map[string]any, 0, len(found))
	for i, v := range found {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s item %d: want an object, got %T", selector, i, v)
		}
		items = append(items, obj)
	}
	return items, nil
}
