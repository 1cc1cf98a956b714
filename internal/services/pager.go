package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/plsync/internal/shared"
)

// Page is one response of a paginated listing. Next is the continuation cursor, empty on the last page.
type Page[T any] struct {
	Items []T
	Next  string
}

// PageFunc fetches the page at cursor. The first call receives an empty cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// Drain follows continuation cursors until none remains and returns every item in server order.
//
// A fetch error aborts the read without a partial result. A cursor seen twice is
// reported as [shared.ErrFetchFailed] rather than looping forever.
func Drain[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var (
		items  []T
		cursor string
		seen   = make(map[string]struct{})
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return items, nil
		}

		items = append(items, page.Items...)

		if page.Next == "" {
			return items, nil
		}
		if _, ok := seen[page.Next]; ok {
			return nil, fmt.Errorf("%w: continuation cursor %q repeated after %d items", shared.ErrFetchFailed, page.Next, len(items))
		}
		seen[page.Next] = struct{}{}
		cursor = page.Next
	}
}
