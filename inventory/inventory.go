// Package inventory models the OCFL v1.x inventory.json document: the
// per-object manifest of versions, digests, and content paths that makes an
// OCFL object self-describing.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	ocflfs "github.com/fcrepo/ocfl-core/fs"
	"github.com/fcrepo/ocfl-core/digest"
)

const InventoryFileName = "inventory.json"

// User identifies the actor recorded against a version.
type User struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Version describes one OCFL object version.
type Version struct {
	Created time.Time   `json:"created"`
	State   digest.Map  `json:"state"`
	Message string      `json:"message,omitempty"`
	User    *User       `json:"user,omitempty"`
}

// Inventory is the decoded contents of an OCFL object's inventory.json.
type Inventory struct {
	ID               string              `json:"id"`
	Type             string              `json:"type"`
	DigestAlgorithm  string              `json:"digestAlgorithm"`
	Head             VNum                `json:"head"`
	ContentDirectory string              `json:"contentDirectory,omitempty"`
	Manifest         digest.Map          `json:"manifest"`
	Versions         map[string]*Version `json:"versions"`
}

// InventoryTypeURI returns the OCFL inventory type URI for spec version v.
func InventoryTypeURI(v string) string {
	return "https://ocfl.io/" + v + "/spec/#inventory"
}

// New returns a fresh inventory for a brand-new object with no versions.
func New(id, alg, ocflSpec string) *Inventory {
	return &Inventory{
		ID:               id,
		Type:             InventoryTypeURI(ocflSpec),
		DigestAlgorithm:  alg,
		ContentDirectory: "content",
		Manifest:         digest.NewMap(),
		Versions:         map[string]*Version{},
	}
}

// HeadVersion returns the Version block for inv.Head, or nil.
func (inv *Inventory) HeadVersion() *Version {
	return inv.Versions[inv.Head.String()]
}

// VNums returns the inventory's version numbers in ascending order.
func (inv *Inventory) VNums() []VNum {
	out := make([]VNum, 0, len(inv.Versions))
	for k := range inv.Versions {
		v, err := ParseVNum(k)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Num() < out[j].Num() })
	return out
}

// Digest returns the hex digest of inv's canonical JSON encoding using alg,
// matching the OCFL requirement that the sidecar records the digest of the
// file exactly as written.
func Digest(inv *Inventory, alg digest.Alg) (string, []byte, error) {
	b, err := json.MarshalIndent(inv, "", "   ")
	if err != nil {
		return "", nil, fmt.Errorf("encoding inventory: %w", err)
	}
	d, err := digest.Digest(alg, bytes.NewReader(b))
	if err != nil {
		return "", nil, err
	}
	return d, b, nil
}

// Write writes inv as dir/inventory.json plus its digest sidecar
// dir/inventory.json.<alg>, per the OCFL spec's requirement that the
// sidecar is written only after the inventory content is final.
func Write(ctx context.Context, fsys ocflfs.WriteFS, dir string, inv *Inventory) error {
	alg := digest.ByID(inv.DigestAlgorithm)
	if alg == nil {
		return fmt.Errorf("unknown digest algorithm: %q", inv.DigestAlgorithm)
	}
	sum, body, err := Digest(inv, alg)
	if err != nil {
		return err
	}
	if _, err := fsys.Write(ctx, dir+"/"+InventoryFileName, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}
	sidecar := fmt.Sprintf("%s %s\n", sum, InventoryFileName)
	sidecarName := dir + "/" + InventoryFileName + "." + inv.DigestAlgorithm
	if _, err := fsys.Write(ctx, sidecarName, bytes.NewReader([]byte(sidecar))); err != nil {
		return fmt.Errorf("writing inventory sidecar: %w", err)
	}
	return nil
}

// Read reads and validates the inventory.json (and its digest sidecar) at
// dir.
func Read(ctx context.Context, fsys ocflfs.FS, dir string) (*Inventory, error) {
	body, err := ocflfs.ReadAll(ctx, fsys, dir+"/"+InventoryFileName)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	var inv Inventory
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, fmt.Errorf("decoding inventory: %w", err)
	}
	alg := digest.ByID(inv.DigestAlgorithm)
	if alg == nil {
		return nil, fmt.Errorf("unknown digest algorithm: %q", inv.DigestAlgorithm)
	}
	sidecarName := dir + "/" + InventoryFileName + "." + inv.DigestAlgorithm
	sidecar, err := ocflfs.ReadAll(ctx, fsys, sidecarName)
	if err != nil {
		return nil, fmt.Errorf("reading inventory sidecar: %w", err)
	}
	want, err := digest.Digest(alg, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	got := parseSidecarDigest(sidecar)
	if got == "" || got != want {
		return nil, fmt.Errorf("inventory digest mismatch: sidecar has %q, computed %q", got, want)
	}
	return &inv, nil
}

func parseSidecarDigest(b []byte) string {
	s := string(b)
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			return s[:i]
		}
	}
	return ""
}
