package datasource

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/corerr"
)

// PanelMetric is one PromQL target extracted from a Grafana dashboard
// panel, tagged with the panel it came from.
type PanelMetric struct {
	PanelTitle string
	Expr       string
	PanelURL   string
}

type dashboardResponse struct {
	Dashboard struct {
		Title  string `json:"title"`
		Panels []struct {
			Title   string `json:"title"`
			ID      int    `json:"id"`
			Targets []struct {
				Expr string `json:"expr"`
			} `json:"targets"`
		} `json:"panels"`
	} `json:"dashboard"`
	Meta struct {
		Slug string `json:"slug"`
	} `json:"meta"`
}

// ListPanelMetrics fetches a Grafana dashboard's JSON model and extracts
// the PromQL expr of every panel target, naming a panel_url deep link for
// each (spec.md's dashboard-panel discovery is out of scope for the core
// computation, but feeds DataGrouper.group() in a real deployment).
func (d *DataSource) ListPanelMetrics(ctx context.Context, dashboardUID string) ([]PanelMetric, error) {
	if !d.IsAvailable() {
		return nil, corerr.DataSource("datasource not configured", nil)
	}

	endpoint := fmt.Sprintf("%s/api/dashboards/uid/%s", d.baseURL, dashboardUID)
	body, err := d.get(ctx, endpoint)
	if err != nil {
		return nil, corerr.DataSource(fmt.Sprintf("fetching dashboard %s", dashboardUID), err)
	}

	var resp dashboardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, corerr.DataSource("parsing dashboard response", err)
	}

	var out []PanelMetric
	for _, panel := range resp.Dashboard.Panels {
		for _, target := range panel.Targets {
			if target.Expr == "" {
				continue
			}
			out = append(out, PanelMetric{
				PanelTitle: panel.Title,
				Expr:       target.Expr,
				PanelURL:   fmt.Sprintf("%s/d/%s/%s?viewPanel=%d", d.baseURL, dashboardUID, resp.Meta.Slug, panel.ID),
			})
		}
	}
	return out, nil
}
