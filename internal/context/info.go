package context

// CampusInfo is the public, role-independent description of the campus
// that every context carries.
type CampusInfo struct {
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Website     string   `json:"website"`
	Contact     string   `json:"contact"`
	OfficeHours string   `json:"officeHours"`
	Departments []string `json:"departments"`
	Facilities  []string `json:"facilities"`
}

// DefaultCampusInfo is used when no campus description is configured.
var DefaultCampusInfo = CampusInfo{
	Name:        "Campus Portal",
	Location:    "N/A",
	Website:     "N/A",
	Contact:     "N/A",
	OfficeHours: "Monday to Friday, 9:00 to 17:00",
	Departments: []string{"CSE", "ECE", "EEE", "MECH", "CIVIL"},
	Facilities:  []string{"Library", "Laboratories", "Placement Cell", "Hostel", "Sports Complex"},
}

func (c CampusInfo) data() map[string]any {
	return map[string]any{
		"name":        orNA(c.Name),
		"location":    orNA(c.Location),
		"website":     orNA(c.Website),
		"contact":     orNA(c.Contact),
		"officeHours": orNA(c.OfficeHours),
		"departments": listOrNA(c.Departments),
		"facilities":  listOrNA(c.Facilities),
	}
}
