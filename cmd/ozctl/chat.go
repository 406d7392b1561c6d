package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/all2prosperity/audio-svc/domain"
)

var chatReq domain.ChatRequest

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send one chat message and print the reply",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		if chatReq.UserID == "" {
			chatReq.UserID = cfg.UserID
		}
		body, err := newClient().Chat(ctx, chatReq)
		printBody(cmd, body)
		return err
	},
}

var historyReq domain.ChatHistoryRequest

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		body, err := newClient().History(ctx, historyReq.Offset, historyReq.Limit)
		printBody(cmd, body)
		return err
	},
}

var sessionHistoryReq domain.SessionHistoryRequest

var sessionHistoryCmd = &cobra.Command{
	Use:   "session-history",
	Short: "List the exchanges of one chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		body, err := newClient().SessionHistory(ctx, sessionHistoryReq)
		printBody(cmd, body)
		return err
	},
}

func init() {
	flags := chatCmd.Flags()
	flags.StringVarP(&chatReq.Message, "message", "m", "1", "message to send")
	flags.StringVar(&chatReq.SessionID, "session-id", "", "session to continue, empty starts a new one")
	flags.StringVar(&chatReq.UserID, "body-user-id", "", "user_id sent in the body, defaults to --user-id")
	flags.StringVar(&chatReq.RoleID, "role-id", "1", "role to chat with")

	historyCmd.Flags().Int64Var(&historyReq.Offset, "offset", 0, "page index")
	historyCmd.Flags().Int64Var(&historyReq.Limit, "limit", 10, "page size")

	flags = sessionHistoryCmd.Flags()
	flags.StringVar(&sessionHistoryReq.ChatID, "chat-id", "", "session id")
	flags.Int64Var(&sessionHistoryReq.Offset, "offset", 0, "page index")
	flags.Int64Var(&sessionHistoryReq.Limit, "limit", 10, "page size")
	sessionHistoryCmd.MarkFlagRequired("chat-id")
}
