package catalog

import (
	"encoding/json"
	"slices"
	"strings"
)

// BlankValue is the facet value and filter constraint standing for an
// empty field.
const BlankValue = "(blank)"

// FacetFields are the filterable fields, in display order.
var FacetFields = []Field{
	ManufacturerName,
	ProductDivision,
	SalesStatus,
	ProductManager,
	SubItem,
	MaterialGroup,
	MaterialGroupDesc,
}

// facetKeys are the JSON keys the browser UI reads filter options from.
var facetKeys = map[Field]string{
	ManufacturerName:  "manufacturers",
	ProductDivision:   "product_divisions",
	SalesStatus:       "sales_statuses",
	ProductManager:    "product_managers",
	SubItem:           "sub_items",
	MaterialGroup:     "material_groups",
	MaterialGroupDesc: "material_group_descs",
}

// blankFacets lists the facets that offer BlankValue as an option.
var blankFacets = map[Field]bool{
	SalesStatus: true,
}

// IsFacet reports whether f can be filtered on.
func IsFacet(f Field) bool {
	_, ok := facetKeys[f]
	return ok
}

// FacetIndex holds the sorted distinct values of every facet field.
type FacetIndex struct {
	values map[Field][]string
}

// BuildFacets collects the distinct trimmed values of each facet field.
func BuildFacets(records []Record) FacetIndex {
	sets := make(map[Field]map[string]struct{}, len(FacetFields))
	for _, f := range FacetFields {
		sets[f] = make(map[string]struct{})
	}

	for _, r := range records {
		for _, f := range FacetFields {
			v := strings.TrimSpace(r.Get(f))
			if v == "" {
				if !blankFacets[f] {
					continue
				}
				v = BlankValue
			}
			sets[f][v] = struct{}{}
		}
	}

	idx := FacetIndex{values: make(map[Field][]string, len(sets))}
	for f, set := range sets {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		slices.Sort(vals)
		idx.values[f] = vals
	}
	return idx
}

// Values returns the options for facet f. The slice must not be modified.
func (x FacetIndex) Values(f Field) []string {
	return x.values[f]
}

// Map returns the index keyed by the UI's option list names.
func (x FacetIndex) Map() map[string][]string {
	out := make(map[string][]string, len(facetKeys))
	for f, key := range facetKeys {
		vals := x.values[f]
		if vals == nil {
			vals = []string{}
		}
		out[key] = vals
	}
	return out
}

// MarshalJSON encodes the index as {"manufacturers": [...], ...}.
func (x FacetIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.Map())
}
