package integrations

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const maxPerPage = 50

// OrganizationQuery filters the organization search.
type OrganizationQuery struct {
	Keywords      string   `json:"keywords"`
	BusinessTypes []string `json:"business_types"`
	Location      string   `json:"location"`
	MinEmployees  int      `json:"min_employees" binding:"gte=0"`
	MaxEmployees  int      `json:"max_employees" binding:"gte=0"`
	HasWebsite    bool     `json:"has_website"`
	Page          int      `json:"page" binding:"gte=0"`
	PerPage       int      `json:"per_page" binding:"gte=0,lte=50"`
	SkipExisting  *bool    `json:"skip_existing"`
}

// Organization is one search hit.
type Organization struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Website   string   `json:"website,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Employees int      `json:"employees,omitempty"`
	Tags      []string `json:"tags"`
}

// OrganizationSearcher finds prospective clients. *Enrichment implements it.
type OrganizationSearcher interface {
	SearchOrganizations(ctx context.Context, q OrganizationQuery) ([]Organization, error)
}

// Enrichment queries an Apollo-style organization search API.
type Enrichment struct {
	client *jsonClient
}

// NewEnrichment returns ErrNotConfigured without an API key.
func NewEnrichment(baseURL, apiKey string) (*Enrichment, error) {
	if baseURL == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}
	return &Enrichment{client: newJSONClient(baseURL, 1, map[string]string{
		"X-Api-Key":     apiKey,
		"Cache-Control": "no-cache",
	})}, nil
}

type orgSearchRequest struct {
	Page            int      `json:"page"`
	PerPage         int      `json:"per_page"`
	Keywords        []string `json:"q_organization_keyword_tags,omitempty"`
	Name            string   `json:"q_organization_name,omitempty"`
	Locations       []string `json:"organization_locations,omitempty"`
	EmployeesRanges []string `json:"organization_num_employees_ranges,omitempty"`
}

type orgSearchResponse struct {
	Organizations []struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		WebsiteURL string   `json:"website_url"`
		Phone      string   `json:"phone"`
		City       string   `json:"city"`
		State      string   `json:"state"`
		Country    string   `json:"country"`
		Employees  int      `json:"estimated_num_employees"`
		Keywords   []string `json:"keywords"`
	} `json:"organizations"`
}

func (q OrganizationQuery) request() orgSearchRequest {
	req := orgSearchRequest{Page: q.Page, PerPage: q.PerPage}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PerPage <= 0 || req.PerPage > maxPerPage {
		req.PerPage = 25
	}
	req.Keywords = append(req.Keywords, q.BusinessTypes...)
	if kw := strings.TrimSpace(q.Keywords); kw != "" {
		req.Keywords = append(req.Keywords, kw)
	}
	if loc := strings.TrimSpace(q.Location); loc != "" {
		req.Locations = []string{loc}
	}
	if q.MinEmployees > 0 || q.MaxEmployees > 0 {
		max := ""
		if q.MaxEmployees > 0 {
			max = fmt.Sprint(q.MaxEmployees)
		}
		req.EmployeesRanges = []string{fmt.Sprintf("%d,%s", q.MinEmployees, max)}
	}
	return req
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func (e *Enrichment) SearchOrganizations(ctx context.Context, q OrganizationQuery) ([]Organization, error) {
	var resp orgSearchResponse
	if err := e.client.do(ctx, http.MethodPost, "/mixed_companies/search", q.request(), &resp); err != nil {
		return nil, err
	}
	out := make([]Organization, 0, len(resp.Organizations))
	for _, o := range resp.Organizations {
		if q.HasWebsite && o.WebsiteURL == "" {
			continue
		}
		tags := o.Keywords
		if tags == nil {
			tags = []string{}
		}
		out = append(out, Organization{
			ID:        o.ID,
			Name:      o.Name,
			Location:  joinNonEmpty(o.City, o.State, o.Country),
			Website:   o.WebsiteURL,
			Phone:     o.Phone,
			Employees: o.Employees,
			Tags:      tags,
		})
	}
	return out, nil
}
