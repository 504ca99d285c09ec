package entity

// Canonical department board names
const (
	DepartmentGeneral     = "GENERAL"
	DepartmentOmbudsman   = "OMBUDSMAN"
	DepartmentCompliance  = "COMPLIANCE"
	DepartmentCollections = "COLLECTIONS"
	DepartmentSales       = "SALES"
	DepartmentLegal       = "LEGAL"
)

var moduleDepartments = map[ModuleTag]string{
	ModuleGeneral:     DepartmentGeneral,
	ModuleOmbudsman:   DepartmentOmbudsman,
	ModuleCompliance:  DepartmentCompliance,
	ModuleCollections: DepartmentCollections,
	ModuleSales:       DepartmentSales,
	ModuleLegal:       DepartmentLegal,
}

// Departments lists the canonical board set every company gets, in display order.
var Departments = []string{
	DepartmentGeneral,
	DepartmentOmbudsman,
	DepartmentCompliance,
	DepartmentCollections,
	DepartmentSales,
	DepartmentLegal,
}

// DepartmentFor returns the canonical board name for a module tag.
func DepartmentFor(tag ModuleTag) (string, bool) {
	name, ok := moduleDepartments[tag]
	return name, ok
}

// DefaultColumn describes one of the columns created with every new board
type DefaultColumn struct {
	Name   string
	Status TaskStatus
}

// DefaultColumns is the column set created atomically with a board.
// Index is the column position.
var DefaultColumns = []DefaultColumn{
	{Name: "To Do", Status: StatusTodo},
	{Name: "In Progress", Status: StatusInProgress},
	{Name: "In Review", Status: StatusInReview},
	{Name: "Done", Status: StatusDone},
}

// StatusForColumn maps a default column name to its legacy status.
// Custom columns have no status.
func StatusForColumn(name string) (TaskStatus, bool) {
	for _, c := range DefaultColumns {
		if c.Name == name {
			return c.Status, true
		}
	}
	return "", false
}
