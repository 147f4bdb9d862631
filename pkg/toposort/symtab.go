package toposort

// SymbolTable maps file names to dense integer vertex IDs and back.
// IDs are assigned in first-seen order, which is what makes the sort stable.
// A table belongs to one Graph and is not safe for concurrent use.
type SymbolTable struct {
	strToID map[string]int
	idToStr []string
}

// NewSymbolTable creates a new SymbolTable.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		strToID: make(map[string]int),
		idToStr: make([]string, 0),
	}
}

// Intern returns the ID for name, assigning the next free ID on first use.
func (table *SymbolTable) Intern(name string) int {
	if symbolID, exists := table.strToID[name]; exists {
		return symbolID
	}

	symbolID := len(table.idToStr)
	table.idToStr = append(table.idToStr, name)
	table.strToID[name] = symbolID

	return symbolID
}

// Lookup returns the ID of an already interned name without assigning one.
func (table *SymbolTable) Lookup(name string) (int, bool) {
	id, ok := table.strToID[name]

	return id, ok
}

// Resolve returns the name for id, or an empty string for unknown IDs.
func (table *SymbolTable) Resolve(id int) string {
	if id < 0 || id >= len(table.idToStr) {
		return ""
	}

	return table.idToStr[id]
}

// Names returns all interned names in ID order.
func (table *SymbolTable) Names() []string {
	names := make([]string, len(table.idToStr))
	copy(names, table.idToStr)

	return names
}

// Len returns the number of symbols in the table.
func (table *SymbolTable) Len() int {
	return len(table.idToStr)
}
