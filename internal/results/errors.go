package results

import "errors"

var ErrNotFound = errors.New("analysis result not found")
