package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/JonMunkholm/dartsearch/internal/config"
	"github.com/JonMunkholm/dartsearch/internal/core"
	"github.com/JonMunkholm/dartsearch/internal/logging"
)

// openService loads path into a fresh service, as an upload would.
func openService(ctx context.Context, path string) (*core.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	svc := core.NewService(catalog.NewStore(), nil, cfg)
	res, err := svc.Upload(ctx, path, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	logging.FromContext(ctx).Info("catalog loaded", "file", res.FileName, "rows", res.RowCount, "skipped", res.Skipped)
	return svc, nil
}

// parseFilters turns repeated field=value flags into constraints. A field
// given more than once matches any of its values.
func parseFilters(flags []string) (catalog.Constraints, error) {
	values := make(map[catalog.Field][]string)
	for _, flag := range flags {
		key, value, ok := strings.Cut(flag, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q: want field=value", flag)
		}
		field, ok := catalog.ParseFilterKey(strings.TrimSpace(key))
		if !ok {
			return nil, fmt.Errorf("filter %q: unknown field %q (valid: %s)", flag, key, strings.Join(filterKeys(), ", "))
		}
		values[field] = append(values[field], value)
	}

	cs := make(catalog.Constraints, len(values))
	for field, vs := range values {
		c := catalog.Equals(vs[0])
		if len(vs) > 1 {
			c = catalog.AnyOf(vs...)
		}
		if err := cs.Set(field, c); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

func filterKeys() []string {
	keys := make([]string, 0, len(catalog.FacetFields))
	for _, f := range catalog.FacetFields {
		keys = append(keys, f.Key())
	}
	slices.Sort(keys)
	return keys
}

// queryFrom builds the query shared by search and export.
func queryFrom(keywords []string, filters []string) (core.Query, error) {
	cs, err := parseFilters(filters)
	if err != nil {
		return core.Query{}, err
	}
	return core.Query{Keywords: strings.Join(keywords, " "), Filters: cs}, nil
}
