package model

import "errors"

// ErrNoToken means the request carried no token at all. Callers must treat
// this as "anonymous", never as a verification failure.
var ErrNoToken = errors.New("no auth token present")
