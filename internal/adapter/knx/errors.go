package knx

import "errors"

var (
	ErrInvalidGroupAddress      = errors.New("knx: invalid group address")
	ErrInvalidIndividualAddress = errors.New("knx: invalid individual address")
	ErrInvalidConfiguration     = errors.New("knx: invalid configuration")
)
