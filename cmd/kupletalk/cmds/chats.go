package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuplace/kupletalk/pkg/api"
	"github.com/kuplace/kupletalk/pkg/ui"
)

func newChatsCmd() *cobra.Command {
	chats := &cobra.Command{
		Use:   "chats",
		Short: "Inspect and manage chat sessions on the backend",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List chat sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Validate(); err != nil {
				return err
			}
			client, err := api.NewClient(settings.ServerURL)
			if err != nil {
				return err
			}
			chatList, err := client.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			if len(chatList) == 0 {
				fmt.Println("no chats")
				return nil
			}
			for _, chat := range chatList {
				fmt.Printf("%-36s  %s\n", chat.ID, ui.FormatCreatedAt(chat.CreatedAt))
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Validate(); err != nil {
				return err
			}
			client, err := api.NewClient(settings.ServerURL)
			if err != nil {
				return err
			}
			if err := client.DeleteChat(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}

	chats.AddCommand(list)
	chats.AddCommand(del)
	return chats
}
