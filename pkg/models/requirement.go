package models

// RequirementColumns is the fixed column order of every requirements export.
var RequirementColumns = []string{"code", "description", "category"}

type Requirement struct {
	Code        string `json:"code"`        // Requirement code or identifier (e.g. "TH-REQ-010")
	Description string `json:"description"` // Full requirement text
	Category    string `json:"category"`    // Optional grouping such as "thermal" or "interface"
}

// Row returns the record's values in RequirementColumns order.
func (r Requirement) Row() []string {
	return []string{r.Code, r.Description, r.Category}
}
