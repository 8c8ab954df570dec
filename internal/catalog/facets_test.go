package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFacets(t *testing.T) {
	idx := BuildFacets(sampleRecords())

	assert.Equal(t, []string{"Acme", "Bolt Co", "Zed"}, idx.Values(ManufacturerName))
	assert.Equal(t, []string{"Fasteners", "Plumbing", "Tools"}, idx.Values(ProductDivision))
	assert.Equal(t, []string{"(blank)", "Active", "Obsolete"}, idx.Values(SalesStatus))
	assert.Empty(t, idx.Values(ProductManager))
	assert.Empty(t, idx.Values(Description), "description is not a facet")
}

func TestBuildFacets_OnlyStatusGetsBlank(t *testing.T) {
	idx := BuildFacets([]Record{{Description: "x"}})
	assert.Equal(t, []string{BlankValue}, idx.Values(SalesStatus))
	for _, f := range FacetFields {
		if f == SalesStatus {
			continue
		}
		assert.Empty(t, idx.Values(f), f.Key())
	}
}

func TestBuildFacets_EveryValueSelectsARecord(t *testing.T) {
	records := sampleRecords()
	idx := BuildFacets(records)
	for _, f := range FacetFields {
		for _, v := range idx.Values(f) {
			got := ApplyFilters(records, Constraints{f: Equals(v)})
			assert.NotEmpty(t, got, "%s=%q", f.Key(), v)
		}
	}
}

func TestBuildFacets_Empty(t *testing.T) {
	idx := BuildFacets(nil)
	m := idx.Map()
	assert.Len(t, m, len(FacetFields))
	for key, vals := range m {
		assert.NotNil(t, vals, key)
		assert.Empty(t, vals, key)
	}
}

func TestFacetIndex_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(BuildFacets([]Record{
		{Description: "a", ManufacturerName: "Acme", SubItem: "S1"},
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"manufacturers": ["Acme"],
		"product_divisions": [],
		"sales_statuses": ["(blank)"],
		"product_managers": [],
		"sub_items": ["S1"],
		"material_groups": [],
		"material_group_descs": []
	}`, string(data))
}
