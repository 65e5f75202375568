package runtime

import "errors"

// ErrDatasetLimit is returned when every dataset slot is in use.
var ErrDatasetLimit = errors.New("runtime: open dataset limit reached")
