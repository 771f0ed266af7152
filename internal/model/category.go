package model

// Office is a filing location scoped to exactly one category.
type Office struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is the top level of the filing taxonomy and owns its offices.
type Category struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Offices []Office `json:"offices"`
}

// Office returns the office with the given id, if the category contains it.
func (c Category) Office(id string) (Office, bool) {
	for _, o := range c.Offices {
		if o.ID == id {
			return o, true
		}
	}
	return Office{}, false
}
