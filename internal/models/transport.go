package models

type PersonCreateReq struct {
	Name             string   `json:"name" validate:"required"`
	Country          *string  `json:"country"`
	City             *string  `json:"city"`
	IsStarred        *bool    `json:"isStarred"`
	Tags             []string `json:"tags"`
	VisitedLocations []string `json:"visitedLocations"`
}

// PersonUpdateReq distinguishes an omitted field (nil) from one sent as
// empty: `"tags": []` clears the set, leaving the key out keeps it.
type PersonUpdateReq struct {
	Name             *string   `json:"name"`
	Country          *string   `json:"country"`
	City             *string   `json:"city"`
	IsStarred        *bool     `json:"isStarred"`
	Tags             *[]string `json:"tags"`
	VisitedLocations *[]string `json:"visitedLocations"`
}

type PersonResp struct {
	ID               uint64   `json:"id"`
	Name             string   `json:"name"`
	Country          *string  `json:"country,omitempty"`
	City             *string  `json:"city,omitempty"`
	IsStarred        bool     `json:"isStarred"`
	Tags             []string `json:"tags"`
	VisitedLocations []string `json:"visitedLocations"`
}

// PersonSearchResp is the typeahead projection: no relation data.
type PersonSearchResp struct {
	ID      uint64  `json:"id"`
	Name    string  `json:"name"`
	Country *string `json:"country,omitempty"`
	City    *string `json:"city,omitempty"`
}
