package chimux

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadRouteFile builds a route table from a YAML routing file:
//
//	blog_show:
//	  path: /posts/{slug}
//	  methods: [GET]
//	  defaults:
//	    _module: blog
//	    _controller: blog:Post:show
//
// Routes are registered in file order.
func loadRouteFile(path string) (*routeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRoutesUnreadable, path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRoutesUnreadable, path, err)
	}

	table := newRouteTable()
	if len(doc.Content) == 0 {
		return table, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: expected a mapping of route names", ErrRoutesUnreadable, path)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var route Route
		if err := root.Content[i+1].Decode(&route); err != nil {
			return nil, fmt.Errorf("%w: %s: route %s: %w", ErrRoutesUnreadable, path, name, err)
		}
		route.Name = name
		if err := table.add(route); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return table, nil
}
