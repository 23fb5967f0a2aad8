package recorder

import "errors"

// ErrRunNotResumable reports that the run id given to RecordCompletion does
// not exist (or no longer exists) on the server. Nothing has been written
// when this is returned.
var ErrRunNotResumable = errors.New("run not resumable")
