package letterboxd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// normalizeLink makes sure a detail link starts and ends with a slash, the stats
// fragment path is derived by string concatenation and depends on it.
func normalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	if !strings.HasSuffix(link, "/") {
		link += "/"
	}
	return link
}

func statsPath(link string) string {
	return "/csi" + normalizeLink(link) + "stats"
}

// FilmDetail reads a film's detail page and its stats fragment.
//
// The detail page is required: a failing request or a page without the structured
// rating / release year fails the call. The stats fragment is not, when it cannot be
// read the counts are left unknown.
func (c *Client) FilmDetail(ctx context.Context, link string) (RawDetail, error) {
	ctx, span := tracer.Start(ctx, "client:FilmDetail")
	defer span.End()

	link = normalizeLink(link)
	span.SetAttributes(attribute.String("link", link))
	c.tel.ReportDebug("get film detail", link)

	doc, err := c.get(ctx, link, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch detail page")
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return RawDetail{}, fmt.Errorf("%w: %s", ErrFilmNotFound, link)
		}
		return RawDetail{}, fmt.Errorf("film detail %s: %w", link, err)
	}

	var detail RawDetail
	err = extractStructured(doc, &detail)
	if err != nil {
		c.tel.ReportWarning(report_client_film_detail, err, link)
		span.SetStatus(codes.Error, "missing structured data")
		return RawDetail{}, fmt.Errorf("film detail %s: %w", link, err)
	}
	detail.Runtime = extractRuntime(doc)
	counts := extractLists(doc, &detail)
	c.tel.ReportDebug("extracted film detail", link, counts)

	watchedBy, likedBy, err := c.filmStats(ctx, link)
	if err != nil {
		c.tel.ReportWarning(report_client_film_stats, err, link)
	} else {
		detail.WatchedBy = sql.Null[int64]{V: watchedBy, Valid: true}
		detail.LikedBy = sql.Null[int64]{V: likedBy, Valid: true}
	}

	return detail, nil
}

func (c *Client) filmStats(ctx context.Context, link string) (watchedBy, likedBy int64, err error) {
	endpoint := statsPath(link)
	doc, err := c.get(ctx, endpoint, true)
	if err != nil {
		return 0, 0, fmt.Errorf("stats fragment: %w", err)
	}
	watchedBy, likedBy, err = extractStats(doc)
	if err != nil {
		return 0, 0, fmt.Errorf("stats fragment %s: %w", endpoint, err)
	}
	return watchedBy, likedBy, nil
}
