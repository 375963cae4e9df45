package state

import "errors"

// Sentinel errors returned by State.TxSend and its dispatch helpers.
var (
	ErrUnknownFromAddress = errors.New("from address does not exist")
	ErrCallOnEoa          = errors.New("to account is not a contract")
)
