package settings

import "errors"

var (
	ErrSettingsNotFound = errors.New("gateway settings not found")
	ErrGatewayDisabled  = errors.New("payment gateway is disabled")
	ErrPageNotFound     = errors.New("page not found")
	ErrEmptyUpdate      = errors.New("no settings fields to update")
)
