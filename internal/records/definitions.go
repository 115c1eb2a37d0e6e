package records

import (
	"sort"

	"github.com/orthodoxmetrics/om-backend/pkg/enums"
)

// Definition describes one record table: which columns clients may write,
// search, sort and list distinct values for.
type Definition struct {
	Kind        enums.RecordType
	Path        string
	Table       string
	Columns     []string
	Required    []string
	Searchable  []string
	Sortable    []string
	DateColumns []string
	Dropdown    []string
}

var definitions = map[string]Definition{
	"baptisms": {
		Kind:        enums.RecordTypeBaptism,
		Path:        "baptisms",
		Table:       "baptism_records",
		Columns:     []string{"first_name", "last_name", "birth_date", "reception_date", "birthplace", "entry_type", "sponsors", "parents", "clergy"},
		Required:    []string{"first_name", "last_name", "clergy"},
		Searchable:  []string{"first_name", "last_name", "clergy", "sponsors", "parents", "birthplace"},
		Sortable:    []string{"id", "first_name", "last_name", "birth_date", "reception_date", "clergy"},
		DateColumns: []string{"birth_date", "reception_date"},
		Dropdown:    []string{"clergy", "entry_type", "birthplace"},
	},
	"marriages": {
		Kind:        enums.RecordTypeMarriage,
		Path:        "marriages",
		Table:       "marriage_records",
		Columns:     []string{"mdate", "fname_groom", "lname_groom", "parentsg", "fname_bride", "lname_bride", "parentsb", "witness", "mlicense", "clergy"},
		Required:    []string{"fname_groom", "lname_groom", "fname_bride", "lname_bride"},
		Searchable:  []string{"fname_groom", "lname_groom", "fname_bride", "lname_bride", "witness", "clergy"},
		Sortable:    []string{"id", "mdate", "fname_groom", "lname_groom", "fname_bride", "lname_bride", "clergy"},
		DateColumns: []string{"mdate"},
		Dropdown:    []string{"clergy", "witness"},
	},
	"funerals": {
		Kind:        enums.RecordTypeFuneral,
		Path:        "funerals",
		Table:       "funeral_records",
		Columns:     []string{"deceased_date", "burial_date", "name", "lastname", "age", "clergy", "burial_location"},
		Required:    []string{"name", "lastname"},
		Searchable:  []string{"name", "lastname", "clergy", "burial_location"},
		Sortable:    []string{"id", "deceased_date", "burial_date", "name", "lastname", "age", "clergy"},
		DateColumns: []string{"deceased_date", "burial_date"},
		Dropdown:    []string{"clergy", "burial_location"},
	},
}

// Lookup returns the definition served under path (baptisms, marriages,
// funerals).
func Lookup(path string) (Definition, bool) {
	def, ok := definitions[path]
	return def, ok
}

// Paths lists the record kinds in stable order.
func Paths() []string {
	out := make([]string, 0, len(definitions))
	for path := range definitions {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (d Definition) hasColumn(list []string, column string) bool {
	for _, c := range list {
		if c == column {
			return true
		}
	}
	return false
}

func (d Definition) isDate(column string) bool {
	return d.hasColumn(d.DateColumns, column)
}
