package roles

// Input carries the writable fields of a role.
type Input struct {
	Name    string
	Value   string
	Status  int
	Remark  string
	MenuIDs []int64
}

// ListFilter narrows a role listing.
type ListFilter struct {
	Keyword string
	Status  *int
}
