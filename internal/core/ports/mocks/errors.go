package mocks

import (
	"fmt"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

// ErrItemNotFound is returned when an item doesn't exist. It wraps the same
// sentinel as the Postgres store.
var ErrItemNotFound = fmt.Errorf("item %w", coreerrors.ErrNotFound)
