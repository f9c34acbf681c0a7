package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify"
)

func openNotifyDir() (string, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return filepath.Join(cfg.StatePath(), "notify"), nil
}

// pairingCmd groups commands over the pairing fabric (C12): minting a
// short-lived code that claims a project/session pair, and redeeming one.
func pairingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairing",
		Short: "Mint or redeem session pairing codes",
	}
	cmd.AddCommand(pairingCreateCmd())
	cmd.AddCommand(pairingConsumeCmd())
	cmd.AddCommand(notifyCmd())
	return cmd
}

func pairingCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <project> <session>",
		Short: "Mint a pairing code for a project/session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openNotifyDir()
			if err != nil {
				return err
			}
			store, err := notify.NewPairingStore(dir)
			if err != nil {
				return err
			}
			code, err := store.Create(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(code)
			return nil
		},
	}
}

func pairingConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume <code>",
		Short: "Redeem a pairing code, printing the project/session it names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openNotifyDir()
			if err != nil {
				return err
			}
			store, err := notify.NewPairingStore(dir)
			if err != nil {
				return err
			}
			project, session, ok, err := store.Consume(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("code %q is unknown or expired", args[0])
			}
			fmt.Printf("%s %s\n", project, session)
			return nil
		},
	}
}

// notifyCmd groups commands over the shared notification queue (C12).
func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Inspect the shared notification queue",
	}
	cmd.AddCommand(notifyUnreadCmd())
	cmd.AddCommand(notifyReadCmd())
	return cmd
}

func notifyUnreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unread <channel>",
		Short: "List unread notifications for a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openNotifyDir()
			if err != nil {
				return err
			}
			queue, err := notify.NewQueue(dir)
			if err != nil {
				return err
			}
			unread, err := queue.GetUnread(context.Background(), args[0])
			if err != nil {
				return err
			}
			if len(unread) == 0 {
				fmt.Println("no unread notifications")
				return nil
			}
			for _, n := range unread {
				fmt.Printf("%-16s %s\n", n.ID, n.Message)
			}
			return nil
		},
	}
}

func notifyReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <channel> <id>...",
		Short: "Mark notifications as read for a channel",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openNotifyDir()
			if err != nil {
				return err
			}
			queue, err := notify.NewQueue(dir)
			if err != nil {
				return err
			}
			return queue.MarkRead(context.Background(), args[0], args[1:])
		},
	}
}
