package model

import "strings"

// Project is one entry of the GetProject search endpoint.
type Project struct {
	ID   int    `json:"iId"`
	Name string `json:"sName"`
	Code string `json:"sCode"`
}

// Matches reports whether term occurs in the project name or code,
// ignoring case. An empty term matches everything.
func (p Project) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Code), term)
}
