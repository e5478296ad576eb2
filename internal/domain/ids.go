package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind tags an identifier with the entity it names. The unexported method
// keeps the set of kinds closed to this package.
type Kind interface {
	kindName() string
}

type (
	AccountKind     struct{}
	TransactionKind struct{}
	EntryKind       struct{}
	CategoryKind    struct{}
	PayeeKind       struct{}
	LedgerKind      struct{}
	RequestKind     struct{}
	TransferKind    struct{}
)

func (AccountKind) kindName() string     { return "account" }
func (TransactionKind) kindName() string { return "transaction" }
func (EntryKind) kindName() string       { return "entry" }
func (CategoryKind) kindName() string    { return "category" }
func (PayeeKind) kindName() string       { return "payee" }
func (LedgerKind) kindName() string      { return "ledger" }
func (RequestKind) kindName() string     { return "request" }
func (TransferKind) kindName() string    { return "transfer" }

// ID is an opaque 128-bit identifier. IDs of different kinds are distinct
// types and cannot be compared or assigned to each other.
type ID[K Kind] struct {
	u uuid.UUID
}

type (
	AccountID     = ID[AccountKind]
	TransactionID = ID[TransactionKind]
	EntryID       = ID[EntryKind]
	CategoryID    = ID[CategoryKind]
	PayeeID       = ID[PayeeKind]
	LedgerID      = ID[LedgerKind]
	RequestID     = ID[RequestKind]
	TransferID    = ID[TransferKind]
)

// NewID returns a random identifier.
func NewID[K Kind]() ID[K] {
	return ID[K]{u: uuid.New()}
}

// IDFromUUID wraps an existing UUID.
func IDFromUUID[K Kind](u uuid.UUID) ID[K] {
	return ID[K]{u: u}
}

// ParseID parses the canonical textual form.
func ParseID[K Kind](s string) (ID[K], error) {
	u, err := uuid.Parse(s)
	if err != nil {
		var k K
		return ID[K]{}, fmt.Errorf("%w: invalid %s id %q", ErrValidation, k.kindName(), s)
	}
	return ID[K]{u: u}, nil
}

// ParseRequestID parses a caller supplied request id.
func ParseRequestID(s string) (RequestID, error) {
	id, err := ParseID[RequestKind](s)
	if err != nil || id.IsZero() {
		return RequestID{}, fmt.Errorf("%w: %q", ErrInvalidRequestID, s)
	}
	return id, nil
}

func (id ID[K]) UUID() uuid.UUID { return id.u }
func (id ID[K]) IsZero() bool    { return id.u == uuid.Nil }
func (id ID[K]) String() string  { return id.u.String() }

// KindName returns the entity name, e.g. "account".
func (id ID[K]) KindName() string {
	var k K
	return k.kindName()
}

func (id ID[K]) MarshalText() ([]byte, error) {
	return []byte(id.u.String()), nil
}

func (id *ID[K]) UnmarshalText(data []byte) error {
	parsed, err := ParseID[K](string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Compare orders ids by their byte representation.
func (id ID[K]) Compare(other ID[K]) int {
	for i := range id.u {
		switch {
		case id.u[i] < other.u[i]:
			return -1
		case id.u[i] > other.u[i]:
			return 1
		}
	}
	return 0
}
