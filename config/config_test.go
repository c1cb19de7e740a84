package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/fcrepo/ocfl-core/osa"
)

func TestDefaultConfig(t *testing.T) {
	is := is.New(t)
	c := Default()
	is.Equal(c.Storage.Backend, "local")
	is.Equal(c.Storage.Digest, "sha512")
	is.Equal(c.Session.CommitModeDefault, "MUTABLE_HEAD")

	mode, err := c.CommitMode()
	is.NoErr(err)
	is.Equal(mode, osa.MutableHead)
}

func TestLoadOverridesDefaults(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "storage:\n  backend: local\n  root: /data/ocfl\nsession:\n  commit_mode_default: NEW_VERSION\n"
	is.NoErr(os.WriteFile(path, []byte(body), 0o644))

	c, err := Load(path)
	is.NoErr(err)
	is.Equal(c.Storage.Root, "/data/ocfl")
	is.Equal(c.Storage.Digest, "sha512") // unspecified field keeps the default

	mode, err := c.CommitMode()
	is.NoErr(err)
	is.Equal(mode, osa.NewVersion)
}

func TestCommitModeUnknown(t *testing.T) {
	is := is.New(t)
	c := Default()
	c.Session.CommitModeDefault = "bogus"
	_, err := c.CommitMode()
	is.True(err != nil)
}

func TestRollbackDrainTimeout(t *testing.T) {
	is := is.New(t)
	c := Default()
	is.Equal(c.RollbackDrainTimeout().Seconds(), 30.0)
}

func TestDefaultDurationsAreSensible(t *testing.T) {
	is := is.New(t)
	c := Default()
	is.Equal(time.Duration(c.Session.OrphanSessionTimeout), time.Hour)
	is.Equal(time.Duration(c.Session.ReapInterval), 5*time.Minute)
}

func TestLoadParsesDurationStrings(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "session:\n  orphan_session_timeout: 45s\n  reap_interval: 2m\n"
	is.NoErr(os.WriteFile(path, []byte(body), 0o644))

	c, err := Load(path)
	is.NoErr(err)
	is.Equal(time.Duration(c.Session.OrphanSessionTimeout), 45*time.Second)
	is.Equal(time.Duration(c.Session.ReapInterval), 2*time.Minute)
}
