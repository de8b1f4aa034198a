package handler

import (
	"time"

	"creditlens/internal/report/models"
	"creditlens/internal/report/service"
)

// BureauReportResponse is the body of GET /reports/{reportID}/bureaus/{bureau}.
type BureauReportResponse struct {
	ReportID    string                     `json:"report_id"`
	Bureau      string                     `json:"bureau"`
	DisplayName string                     `json:"display_name"`
	Score       *int                       `json:"score"`
	Report      models.UnifiedCreditReport `json:"report"`
}

// BureauStatusResponse is one bureau row of the overview.
type BureauStatusResponse struct {
	Bureau      string `json:"bureau"`
	DisplayName string `json:"display_name"`
	Unlocked    bool   `json:"unlocked"`
	Fetched     bool   `json:"fetched"`
	HasData     bool   `json:"has_data"`
	Score       *int   `json:"score"`
}

// OverviewResponse is the body of GET /reports/{reportID}/bureaus.
type OverviewResponse struct {
	ReportID       string                 `json:"report_id"`
	AggregateScore int                    `json:"aggregate_score"`
	DefaultBureau  *string                `json:"default_bureau"`
	Bureaus        []BureauStatusResponse `json:"bureaus"`
}

// PullResponse is the body of POST /reports/{reportID}/bureaus/{bureau}/pull.
type PullResponse struct {
	ReportID  string    `json:"report_id"`
	Bureau    string    `json:"bureau"`
	Score     *int      `json:"score"`
	FetchedAt time.Time `json:"fetched_at"`
	Sandbox   bool      `json:"sandbox"`
}

func FromView(v *service.BureauView) BureauReportResponse {
	return BureauReportResponse{
		ReportID:    v.ReportID,
		Bureau:      v.Bureau.String(),
		DisplayName: v.Bureau.DisplayName(),
		Score:       v.Score,
		Report:      v.Report,
	}
}

func FromOverview(o *service.Overview) OverviewResponse {
	resp := OverviewResponse{
		ReportID:       o.ReportID,
		AggregateScore: o.AggregateScore,
		Bureaus:        make([]BureauStatusResponse, 0, len(o.Bureaus)),
	}
	if o.DefaultBureau != "" {
		d := o.DefaultBureau.String()
		resp.DefaultBureau = &d
	}
	for _, b := range o.Bureaus {
		resp.Bureaus = append(resp.Bureaus, BureauStatusResponse{
			Bureau:      b.Bureau.String(),
			DisplayName: b.Bureau.DisplayName(),
			Unlocked:    b.Unlocked,
			Fetched:     b.Fetched,
			HasData:     b.HasData,
			Score:       b.Score,
		})
	}
	return resp
}

func FromPull(p *service.PullResult) PullResponse {
	return PullResponse{
		ReportID:  p.ReportID,
		Bureau:    p.Bureau.String(),
		Score:     p.Score,
		FetchedAt: p.FetchedAt,
		Sandbox:   p.Sandbox,
	}
}
