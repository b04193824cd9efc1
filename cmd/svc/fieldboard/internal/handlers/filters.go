package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/schema"

	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/assistant"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/dal"
	"github.com/tecnotop/backend/libs/errors"
)

type filterParams struct {
	StartDate string   `schema:"startDate"`
	EndDate   string   `schema:"endDate"`
	Sellers   []string `schema:"seller"`
	Companies []string `schema:"company"`
	VisitType string   `schema:"visitType"`
}

var filterDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// parseFilters decodes the filter query params. When no period is
// given the dashboard defaults to the current year to date.
func (h *handlers) parseFilters(r *http.Request) (*dal.Filters, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errors.Trace(err)
	}
	params := &filterParams{}
	if err := filterDecoder.Decode(params, r.Form); err != nil {
		return nil, errors.Trace(err)
	}

	now := h.clk.Now()
	f := &dal.Filters{
		StartDate: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		VisitType: params.VisitType,
	}
	if params.StartDate != "" {
		t, err := time.Parse("2006-01-02", params.StartDate)
		if err != nil {
			return nil, errors.Annotate(errors.Trace(err), "bad startDate")
		}
		f.StartDate = t
	}
	if params.EndDate != "" {
		t, err := time.Parse("2006-01-02", params.EndDate)
		if err != nil {
			return nil, errors.Annotate(errors.Trace(err), "bad endDate")
		}
		f.EndDate = t
	}
	for _, s := range params.Sellers {
		if s = strings.TrimSpace(s); s != "" {
			f.Sellers = append(f.Sellers, s)
		}
	}
	for _, c := range params.Companies {
		if c = strings.TrimSpace(c); c != "" {
			f.Companies = append(f.Companies, c)
		}
	}
	return f, nil
}

// cacheKey canonicalizes a filter set for the query cache.
func cacheKey(endpoint string, f *dal.Filters) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		endpoint,
		f.StartDate.Format("2006-01-02"),
		f.EndDate.Format("2006-01-02"),
		strings.Join(f.Sellers, ","),
		strings.Join(f.Companies, ","),
		f.VisitType)
}

// dashboardFilters converts the API filters into the assistant's
// default-period block.
func dashboardFilters(f *dal.Filters) *assistant.DashboardFilters {
	if f == nil {
		return nil
	}
	return &assistant.DashboardFilters{
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Sellers:   strings.Join(f.Sellers, ", "),
		Companies: strings.Join(f.Companies, ", "),
		VisitType: f.VisitType,
	}
}
