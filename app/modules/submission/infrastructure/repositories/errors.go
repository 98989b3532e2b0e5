package submissiondb

import "errors"

// ErrRecordNotFound indicates the user has no submission in the scanned
// tier(s).
var ErrRecordNotFound = errors.New("submission record not found")

// ErrSheetMissing indicates a tier sheet vanished between schema check and
// use.
var ErrSheetMissing = errors.New("tier sheet missing")
