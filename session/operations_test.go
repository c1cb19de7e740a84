package session

import (
	"testing"

	"github.com/matryer/is"
)

func TestOperationKindStringAndTarget(t *testing.T) {
	is := is.New(t)
	op := CreateRdfSourceOp{base: base{RID: "info:fedora/x"}}
	is.Equal(op.Kind(), OpCreateRdfSource)
	is.Equal(op.Kind().String(), "create-rdf-source")
	is.Equal(op.Target(), "info:fedora/x")

	var k OperationKind = 99
	is.Equal(k.String(), "unknown")
}
