package stream

import "errors"

var (
	// ErrConfiguration: некорректная конфигурация мира
	ErrConfiguration = errors.New("stream: invalid configuration")
	// ErrInvariant: нарушение инварианта пула или индекса (ошибка программиста)
	ErrInvariant = errors.New("stream: invariant violation")
)
