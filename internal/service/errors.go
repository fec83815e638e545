package service

import "errors"

var (
	// ErrEmptyOrder means the command carried no product codes at all.
	ErrEmptyOrder = errors.New("no product codes in confirmation command")

	// ErrInvalidCodeFormat means a product code did not split into a
	// non-empty product id and size.
	ErrInvalidCodeFormat = errors.New("invalid product code format")

	// ErrOutOfStock means the requested size has no remaining quantity.
	ErrOutOfStock = errors.New("out of stock")
)
