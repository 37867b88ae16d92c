package mangadex

import (
	"context"
	"net/http"
)

// ReportDetails describes a report to file.
type ReportDetails struct {
	Category ReportCategory
	// Reason is a reason id, or a key or English text the catalog resolves.
	Reason   string
	ObjectID string
	Details  string
}

// CreateReport files a report.
func (c *Client) CreateReport(ctx context.Context, report ReportDetails) error {
	if report.Reason == "" {
		return errNoReason
	}
	if err := ValidateID(report.ObjectID); err != nil {
		return err
	}

	reasonID := report.Reason
	if ValidateID(reasonID) != nil {
		id, err := c.catalog.ReportReasonID(report.Category, report.Reason)
		if err != nil {
			return err
		}
		reasonID = id
	}

	body := struct {
		Category ReportCategory `json:"category"`
		Reason   string         `json:"reason"`
		ObjectID string         `json:"objectId"`
		Details  string         `json:"details"`
	}{
		Category: report.Category,
		Reason:   reasonID,
		ObjectID: report.ObjectID,
		Details:  report.Details,
	}

	_, err := c.Request(ctx, MustRoute(http.MethodPost, "/report", nil).WithAuth(), body)
	return err
}

// ReportListOptions filters the current user's reports.
type ReportListOptions struct {
	ListOptions
	Category ReportCategory
	ObjectID string
	ReasonID string
	Status   ReportStatus
}

// MyReports lists the reports the current user filed.
func (c *Client) MyReports(ctx context.Context, opts ReportListOptions) (*CollectionResponse[ReportAttributes], error) {
	q := Query{
		"category": optString(string(opts.Category)),
		"objectId": optString(opts.ObjectID),
		"reasonId": optString(opts.ReasonID),
		"status":   optString(string(opts.Status)),
	}
	if err := opts.apply(q, 100); err != nil {
		return nil, err
	}
	route := MustRoute(http.MethodGet, "/report", nil).WithAuth().WithQuery(q)
	return fetch[CollectionResponse[ReportAttributes]](ctx, c, route, nil)
}
