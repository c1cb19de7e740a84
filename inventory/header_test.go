package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/fcrepo/ocfl-core/fs/memory"
)

func TestHeaderEncodeDecodeRoundtrip(t *testing.T) {
	is := is.New(t)
	h := &Header{
		ID:               "info:fedora/foo",
		InteractionModel: ModelContainer,
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		LastModifiedAt:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		StateToken:       "abc123",
	}
	b, err := EncodeHeader(h)
	is.NoErr(err)

	got, err := DecodeHeader(b)
	is.NoErr(err)
	is.Equal(got.ID, h.ID)
	is.Equal(got.InteractionModel, h.InteractionModel)
	is.Equal(got.StateToken, h.StateToken)
}

func TestSidecarPath(t *testing.T) {
	is := is.New(t)
	is.Equal(SidecarPath("C/fcr-container.nt"), "C/fcr-container.nt.headers")
}

func TestWriteReadHeader(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys := memory.New()

	h := &Header{ID: "info:fedora/foo", InteractionModel: ModelBinary, Filename: "data.bin"}
	is.NoErr(WriteHeader(ctx, fsys, "obj1", "fcr-content", h))

	got, err := ReadHeader(ctx, fsys, "obj1", "fcr-content")
	is.NoErr(err)
	is.Equal(got.ID, "info:fedora/foo")
	is.Equal(got.Filename, "data.bin")
}
