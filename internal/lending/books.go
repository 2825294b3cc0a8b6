package lending

import (
	"context"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Book returns a book with its copy counts.
func (s *Service) Book(ctx context.Context, id int64) (*model.Book, error) {
	var book *model.Book
	err := store.Retry(ctx, func() error {
		var err error
		book, err = store.GetBook(ctx, s.db, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting book %d: %w", id, err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}
