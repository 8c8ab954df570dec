// Package catalog is the in-memory search engine for product/material
// catalogs uploaded as spreadsheets.
//
// A catalog file is reduced to a fixed ten-field [Record] schema by
// [ResolveHeaders] and [ExtractRecords]. The loaded record set lives in a
// [Store], which precomputes the [FacetIndex] offered as filter options.
// Queries narrow the set with [ApplyFilters] (exact, per-field constraints)
// and [SearchKeywords] (multi-word substring search over description and
// item number). [ExportWorkbook] writes a result set back out.
//
// Nothing in this package performs network I/O or blocks; the only readers
// are the [RowSource] implementations handed in by the caller.
package catalog

// Field identifies one of the ten logical record fields.
type Field int

const (
	ItemNo Field = iota
	Description
	ProductDivision
	MaterialGroup
	MaterialGroupDesc
	ManufacturerName
	ManufacturerItemNo
	SalesStatus
	ProductManager
	SubItem

	numFields
)

// Fields lists every field in record (and export column) order.
var Fields = [numFields]Field{
	ItemNo,
	Description,
	ProductDivision,
	MaterialGroup,
	MaterialGroupDesc,
	ManufacturerName,
	ManufacturerItemNo,
	SalesStatus,
	ProductManager,
	SubItem,
}

type fieldInfo struct {
	key     string   // snake_case name used on the wire
	label   string   // export column label
	headers []string // accepted upload headers, preferred first
}

var fieldInfos = [numFields]fieldInfo{
	ItemNo:             {"item_no", "Item No", []string{"item", "item no"}},
	Description:        {"description", "Description", []string{"description"}},
	ProductDivision:    {"product_division", "Product Division", []string{"product division"}},
	MaterialGroup:      {"material_group", "Material Group", []string{"material group"}},
	MaterialGroupDesc:  {"material_group_desc", "Material Group Desc", []string{"material group desc"}},
	ManufacturerName:   {"manufacturer_name", "Manufacturer Name", []string{"mfr name", "manufacturer name"}},
	ManufacturerItemNo: {"manufacturer_item_no", "Manufacturer Item No", []string{"mfr item", "manufacturer item no"}},
	SalesStatus:        {"sales_status", "Sales Status", []string{"sales status"}},
	ProductManager:     {"product_manager", "Product Manager", []string{"product mgr", "product manager"}},
	SubItem:            {"sub_item", "Sub Item", []string{"sub item"}},
}

// Key returns the snake_case name of the field, e.g. "manufacturer_name".
func (f Field) Key() string {
	if !f.valid() {
		return ""
	}
	return fieldInfos[f].key
}

// Label returns the human-readable column label used in exports.
func (f Field) Label() string {
	if !f.valid() {
		return ""
	}
	return fieldInfos[f].label
}

// Header returns the canonical upload header for the field.
func (f Field) Header() string {
	if !f.valid() {
		return ""
	}
	return fieldInfos[f].headers[0]
}

func (f Field) String() string { return f.Key() }

func (f Field) valid() bool { return f >= 0 && f < numFields }

// ParseField looks up a field by its snake_case key.
func ParseField(key string) (Field, bool) {
	for _, f := range Fields {
		if fieldInfos[f].key == key {
			return f, true
		}
	}
	return 0, false
}

// Labels returns the export header row.
func Labels() []string {
	out := make([]string, len(Fields))
	for i, f := range Fields {
		out[i] = f.Label()
	}
	return out
}

// Record is one normalized catalog entry. Missing values are empty strings.
type Record struct {
	ItemNo             string `json:"item_no" csv:"Item No"`
	Description        string `json:"description" csv:"Description"`
	ProductDivision    string `json:"product_division" csv:"Product Division"`
	MaterialGroup      string `json:"material_group" csv:"Material Group"`
	MaterialGroupDesc  string `json:"material_group_desc" csv:"Material Group Desc"`
	ManufacturerName   string `json:"manufacturer_name" csv:"Manufacturer Name"`
	ManufacturerItemNo string `json:"manufacturer_item_no" csv:"Manufacturer Item No"`
	SalesStatus        string `json:"sales_status" csv:"Sales Status"`
	ProductManager     string `json:"product_manager" csv:"Product Manager"`
	SubItem            string `json:"sub_item" csv:"Sub Item"`
}

// Get returns the value of field f.
func (r Record) Get(f Field) string {
	switch f {
	case ItemNo:
		return r.ItemNo
	case Description:
		return r.Description
	case ProductDivision:
		return r.ProductDivision
	case MaterialGroup:
		return r.MaterialGroup
	case MaterialGroupDesc:
		return r.MaterialGroupDesc
	case ManufacturerName:
		return r.ManufacturerName
	case ManufacturerItemNo:
		return r.ManufacturerItemNo
	case SalesStatus:
		return r.SalesStatus
	case ProductManager:
		return r.ProductManager
	case SubItem:
		return r.SubItem
	}
	return ""
}

// set is only used while a record is being built by the extractor.
func (r *Record) set(f Field, v string) {
	switch f {
	case ItemNo:
		r.ItemNo = v
	case Description:
		r.Description = v
	case ProductDivision:
		r.ProductDivision = v
	case MaterialGroup:
		r.MaterialGroup = v
	case MaterialGroupDesc:
		r.MaterialGroupDesc = v
	case ManufacturerName:
		r.ManufacturerName = v
	case ManufacturerItemNo:
		r.ManufacturerItemNo = v
	case SalesStatus:
		r.SalesStatus = v
	case ProductManager:
		r.ProductManager = v
	case SubItem:
		r.SubItem = v
	}
}

// Values returns the record's values in [Fields] order.
func (r Record) Values() []string {
	out := make([]string, len(Fields))
	for i, f := range Fields {
		out[i] = r.Get(f)
	}
	return out
}
