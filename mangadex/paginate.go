package mangadex

import "context"

// PageFunc fetches the page of a collection that starts at offset.
type PageFunc[A any] func(ctx context.Context, offset int) (*CollectionResponse[A], error)

// Paginate walks a collection page by page until it is exhausted, the
// pagination window ends or limit entities were collected. A limit of zero
// means no cap.
//
//	all, err := mangadex.Paginate(ctx, 0, func(ctx context.Context, offset int) (*mangadex.CollectionResponse[mangadex.MangaAttributes], error) {
//		return client.FollowedManga(ctx, mangadex.ListOptions{Offset: offset})
//	})
func Paginate[A any](ctx context.Context, limit int, page PageFunc[A]) ([]Entity[A], error) {
	var out []Entity[A]
	offset := 0

	for offset < MaxDepth {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		resp, err := page(ctx, offset)
		if err != nil {
			return out, err
		}
		out = append(out, resp.Data...)

		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if len(resp.Data) == 0 {
			break
		}
		offset = resp.Offset + len(resp.Data)
		if offset >= resp.Total {
			break
		}
	}
	return out, nil
}
