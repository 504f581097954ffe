package catalog

import "errors"

var (
	ErrBusNotFound    = errors.New("bus not found")
	ErrCityNotFound   = errors.New("city not found")
	ErrDuplicatePlate = errors.New("bus with this plate already exists")
	ErrDuplicateCity  = errors.New("city with this name already exists")
	ErrCityInUse      = errors.New("city is referenced by existing trips")
	ErrBusInUse       = errors.New("bus is referenced by existing trips")
)
