package cli

import (
	"context"
	"fmt"

	"github.com/muesli/coral"
)

var txnFlags = struct {
	id string
}{}

var commitCmd = &coral.Command{
	Use:   "commit",
	Short: "Commit a pending transaction by id",
	RunE: func(cmd *coral.Command, args []string) error {
		return runCommit(cmd.Context())
	},
}

var rollbackCmd = &coral.Command{
	Use:   "rollback",
	Short: "Roll back a pending transaction by id",
	RunE: func(cmd *coral.Command, args []string) error {
		return runRollback(cmd.Context())
	},
}

func init() {
	for _, c := range []*coral.Command{commitCmd, rollbackCmd} {
		c.Flags().StringVar(&txnFlags.id, "txn", "", "transaction id")
	}
}

func runCommit(ctx context.Context) error {
	if txnFlags.id == "" {
		return fmt.Errorf("--txn is required")
	}
	mgr, cleanup, err := newManager()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := mgr.Get(txnFlags.id)
	if err != nil {
		return err
	}
	if err := sess.Commit(ctx); err != nil {
		fmt.Println(labelStyle.Render("result:"), failStyle.Render(err.Error()))
		return nil
	}
	mgr.Release(txnFlags.id)
	fmt.Println(labelStyle.Render("result:"), okStyle.Render("committed"))
	return nil
}

func runRollback(ctx context.Context) error {
	if txnFlags.id == "" {
		return fmt.Errorf("--txn is required")
	}
	mgr, cleanup, err := newManager()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := mgr.Get(txnFlags.id)
	if err != nil {
		return err
	}
	if err := sess.Rollback(ctx); err != nil {
		fmt.Println(labelStyle.Render("result:"), failStyle.Render(err.Error()))
		mgr.Release(txnFlags.id)
		return nil
	}
	mgr.Release(txnFlags.id)
	fmt.Println(labelStyle.Render("result:"), okStyle.Render("rolled back"))
	return nil
}
