package session

import (
	"io"

	"github.com/fcrepo/ocfl-core/inventory"
)

// OperationKind tags the variant of a persist operation, used for static
// dispatch instead of runtime type inspection.
type OperationKind int

const (
	OpCreateRdfSource OperationKind = iota
	OpUpdateRdfSource
	OpCreateNonRdfSource
	OpUpdateNonRdfSource
	OpDeleteResource
	OpPurgeResource
	OpCreateVersion
)

func (k OperationKind) String() string {
	switch k {
	case OpCreateRdfSource:
		return "create-rdf-source"
	case OpUpdateRdfSource:
		return "update-rdf-source"
	case OpCreateNonRdfSource:
		return "create-non-rdf-source"
	case OpUpdateNonRdfSource:
		return "update-non-rdf-source"
	case OpDeleteResource:
		return "delete-resource"
	case OpPurgeResource:
		return "purge-resource"
	case OpCreateVersion:
		return "create-version"
	default:
		return "unknown"
	}
}

// Operation is a single unit of persist work submitted to a session. Every
// concrete operation type below implements it; the Kind() value is what
// the persister dispatch table switches on.
type Operation interface {
	Kind() OperationKind
	Target() string // RID the operation acts on
}

// base carries the fields common to every logical-resource operation.
type base struct {
	RID               string
	ParentID          string
	InteractionModel  inventory.InteractionModel
	ServerManagedMode inventory.ServerManagedMode
	Message           string
	User              *inventory.User
}

func (b base) Target() string { return b.RID }

// CreateRdfSourceOp creates a new RDF container (or archival group root).
type CreateRdfSourceOp struct {
	base
	ArchivalGroup bool
	Triples       io.Reader
}

func (CreateRdfSourceOp) Kind() OperationKind { return OpCreateRdfSource }

// UpdateRdfSourceOp replaces the RDF body of an existing resource.
type UpdateRdfSourceOp struct {
	base
	Triples io.Reader
}

func (UpdateRdfSourceOp) Kind() OperationKind { return OpUpdateRdfSource }

// CreateNonRdfSourceOp creates a new binary resource.
type CreateNonRdfSourceOp struct {
	base
	Content        io.Reader
	MimeType       string
	Filename       string
	ExpectedDigest string // optional caller-supplied fixity check
	DigestAlg      string
}

func (CreateNonRdfSourceOp) Kind() OperationKind { return OpCreateNonRdfSource }

// UpdateNonRdfSourceOp replaces the binary body of an existing resource.
type UpdateNonRdfSourceOp struct {
	base
	Content        io.Reader
	MimeType       string
	Filename       string
	ExpectedDigest string
	DigestAlg      string
}

func (UpdateNonRdfSourceOp) Kind() OperationKind { return OpUpdateNonRdfSource }

// DeleteResourceOp tombstones a resource. For an archival-group child this
// removes only the child's subpaths; the group object persists.
type DeleteResourceOp struct {
	base
}

func (DeleteResourceOp) Kind() OperationKind { return OpDeleteResource }

// PurgeResourceOp removes an entire OCFL object and its FOI mapping.
// Invalid for archival-group children.
type PurgeResourceOp struct {
	base
}

func (PurgeResourceOp) Kind() OperationKind { return OpPurgeResource }

// CreateVersionOp promotes a MUTABLE_HEAD OSS to a NEW_VERSION commit.
type CreateVersionOp struct {
	base
}

func (CreateVersionOp) Kind() OperationKind { return OpCreateVersion }
