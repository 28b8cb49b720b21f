package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

func filmsPath(username string, page int) string {
	escaped := url.PathEscape(username)
	if page <= 1 {
		return fmt.Sprintf("/%s/films/", escaped)
	}
	return fmt.Sprintf("/%s/films/page/%d/", escaped, page)
}

// pageCount reads the number of list pages off the pagination controls, a list without
// pagination has a single page.
func pageCount(doc *goquery.Document) (int, error) {
	pages := doc.Find("li.paginate-page")
	if pages.Length() == 0 {
		return 1, nil
	}
	text := strings.TrimSpace(pages.Last().Find("a").Text())
	if text == "" {
		text = strings.TrimSpace(pages.Last().Text())
	}
	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse page count %q: %w", text, err)
	}
	return count, nil
}

// parseFilmList returns the poster entries of a list page in document order.
func (c *Client) parseFilmList(doc *goquery.Document, endpoint string) []Film {
	var films []Film
	doc.Find("ul.poster-list").First().ChildrenFiltered("li").Each(func(i int, entry *goquery.Selection) {
		poster := entry.Find("div").First()

		idStr, _ := poster.Attr("data-film-id")
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			c.tel.ReportWarning(
				report_client_films,
				fmt.Errorf("entry %d: parse film id %q: %w", i, idStr, err),
				endpoint,
			)
			return
		}
		link := poster.AttrOr("data-target-link", "")
		if link == "" {
			c.tel.ReportWarning(
				report_client_films,
				fmt.Errorf("entry %d: film %d has no link", i, id),
				endpoint,
			)
			return
		}

		films = append(films, Film{
			Id:     id,
			Title:  entry.Find("img").First().AttrOr("alt", ""),
			Rating: DecodeRating(entry.Find("p.poster-viewingdata").Text()),
			Liked:  entry.Find("span.like").Length() > 0,
			Link:   link,
		})
	})
	return films
}

// Films returns every film on the user's list, rated or not, in list order.
//
// A missing profile fails with ErrUserNotFound, any other failing page fails the whole
// call, there is no such thing as a partial list.
func (c *Client) Films(ctx context.Context, username string) ([]Film, error) {
	ctx, span := tracer.Start(ctx, "client:Films")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	if username == "" {
		return nil, fmt.Errorf("letterboxd: username is empty")
	}
	c.tel.ReportDebug("get films", username)

	wrap := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch film list")
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return fmt.Errorf("films of %s: %w", username, err)
	}

	first, err := c.get(ctx, filmsPath(username, 1), false)
	if err != nil {
		return nil, wrap(err)
	}
	count, err := pageCount(first)
	if err != nil {
		c.tel.ReportBroken(report_client_films, err, username)
		return nil, wrap(err)
	}
	span.SetAttributes(attribute.Int("pages", count))

	pages := make([][]Film, count)
	pages[0] = c.parseFilmList(first, filmsPath(username, 1))

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 1; i < count; i++ {
		group.Go(func() error {
			endpoint := filmsPath(username, i+1)
			doc, err := c.get(groupCtx, endpoint, false)
			if err != nil {
				return err
			}
			pages[i] = c.parseFilmList(doc, endpoint)
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return nil, wrap(err)
	}

	var films []Film
	for _, page := range pages {
		films = append(films, page...)
	}
	c.tel.ReportCount(report_client_films, int64(len(films)))
	return films, nil
}
