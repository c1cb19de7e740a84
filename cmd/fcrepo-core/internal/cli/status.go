package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/coral"

	"github.com/fcrepo/ocfl-core/inventory"
)

var labelStyle = lipgloss.NewStyle().
	Width(14).
	Bold(true).
	Foreground(lipgloss.Color("#999999"))

var okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3fb950"))
var failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149"))

var statusFlags = struct {
	rid     string
	version string
}{}

var statusCmd = &coral.Command{
	Use:   "status",
	Short: "Print version and header info for a resource",
	RunE: func(cmd *coral.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.rid, "rid", "", "resource identifier to inspect")
	statusCmd.Flags().StringVar(&statusFlags.version, "version", "", "inspect a historical OCFL version (e.g. v2) instead of the head")
}

func runStatus(ctx context.Context) error {
	mgr, cleanup, err := newManager()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := mgr.Get("")
	if err != nil {
		return err
	}

	if statusFlags.rid == "" {
		return fmt.Errorf("--rid is required")
	}

	var hdr *inventory.Header
	if statusFlags.version != "" {
		v, verr := inventory.ParseVNum(statusFlags.version)
		if verr != nil {
			return fmt.Errorf("invalid --version: %w", verr)
		}
		hdr, err = sess.GetHeadersAtVersion(ctx, statusFlags.rid, v)
	} else {
		hdr, err = sess.GetHeaders(ctx, statusFlags.rid)
	}
	if err != nil {
		fmt.Println(labelStyle.Render("resource:"), statusFlags.rid)
		fmt.Println(labelStyle.Render("status:"), failStyle.Render(err.Error()))
		return nil
	}
	fmt.Println(labelStyle.Render("resource:"), hdr.ID)
	fmt.Println(labelStyle.Render("model:"), hdr.InteractionModel)
	fmt.Println(labelStyle.Render("deleted:"), hdr.Deleted)
	fmt.Println(labelStyle.Render("created:"), hdr.CreatedAt)
	fmt.Println(labelStyle.Render("modified:"), hdr.LastModifiedAt)

	versions, err := sess.ListVersions(ctx, statusFlags.rid)
	if err != nil {
		fmt.Println(labelStyle.Render("versions:"), failStyle.Render(err.Error()))
		return nil
	}
	fmt.Println(labelStyle.Render("versions:"), okStyle.Render(fmt.Sprintf("%d", len(versions))))
	for _, v := range versions {
		fmt.Printf("  %s  %s  %s\n", v.Num, v.Created, v.Message)
	}
	return nil
}
