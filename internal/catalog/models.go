// Package catalog is the client for the remote creature catalog: a public
// REST API serving creature records, paginated name listings, and
// category-scoped listings. The rest of the system treats records as opaque
// beyond the id field, which keys the favorites space.
package catalog

// Creature is one catalog record.
type Creature struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Height     int      `json:"height"`
	Weight     int      `json:"weight"`
	Categories []string `json:"categories"`
	ImageURL   string   `json:"image_url"`
}

// NamedRef is a name+url reference returned by listing endpoints.
type NamedRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// listResponse is the wire shape of the paginated listing endpoint.
type listResponse struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []NamedRef `json:"results"`
}

// categoryResponse is the wire shape of the category endpoint; it lists
// every creature of the category without pagination.
type categoryResponse struct {
	Name      string     `json:"name"`
	Creatures []NamedRef `json:"creatures"`
}

// Page is a window of fully resolved creature records.
type Page struct {
	Count    int
	Next     *string
	Previous *string
	Results  []Creature
}

// CategoryPage is a locally paginated window over one category.
type CategoryPage struct {
	Results []Creature
	HasMore bool
	Total   int
}
