package clients

import "errors"

var (
	UnknownClientErr        = errors.New("unknown client_id")
	ClientSecretMismatchErr = errors.New("client secret incorrect or missing")
)
