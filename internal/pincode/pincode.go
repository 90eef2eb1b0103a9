// Package pincode answers whether a delivery pincode is served by the shipping partners.
// Serviceable pincodes are published as gzipped files, one pincode per line, either on local
// disk or in S3.
package pincode

import (
	"context"
)

// Checker decides whether orders can be delivered to a pincode.
type Checker interface {
	// Serviceable returns nil when the pincode can be delivered to and
	// model.ErrPincodeNotServiceable otherwise.
	Serviceable(ctx context.Context, pincode string) error

	// Close releases resources held by the checker.
	Close() error
}

// Set represents a set of pincodes for fast lookup.
type Set interface {
	// Contains checks if a pincode exists in the set.
	Contains(pincode string) bool

	// Size returns the number of pincodes in the set.
	Size() int
}

// Loader loads a gzipped pincode file into a Set.
type Loader interface {
	Load(ctx context.Context, path string) (Set, error)
}
