package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrNameTaken          = fmt.Errorf("name already in use")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrNotConnected       = fmt.Errorf("not connected to the relay")
	ErrReconnectExhausted = fmt.Errorf("could not reconnect to the relay")
)
