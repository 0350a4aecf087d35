// Copyright (C) 2025 ente-x
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ente-x/cryptocore/chatdb"
	"github.com/ente-x/cryptocore/config"
	"github.com/ente-x/cryptocore/encoding"
)

var (
	chatdbPath   string
	chatdbKeyB64 string
)

var chatdbCmd = &cobra.Command{
	Use:   "chatdb",
	Short: "Inspect and drive the encrypted chat datastore",
}

func init() {
	rootCmd.AddCommand(chatdbCmd)
	chatdbCmd.PersistentFlags().StringVar(&chatdbPath, "db", "", "Path to the chat database (default: config chatdb.path)")
	chatdbCmd.PersistentFlags().StringVarP(&chatdbKeyB64, "key", "k", "", "Base64 datastore key (required)")
	chatdbCmd.MarkPersistentFlagRequired("key")

	chatdbCmd.AddCommand(chatdbSessionsCmd)
	chatdbCmd.AddCommand(chatdbMessagesCmd)
	chatdbCmd.AddCommand(chatdbSendCmd)
}

func openChatDB() (*chatdb.ChatDB, error) {
	key, err := encoding.DecodeB64(chatdbKeyB64)
	if err != nil {
		return nil, fmt.Errorf("invalid --key: %w", err)
	}

	path := chatdbPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		path = cfg.ChatDB.Path
	}

	return chatdb.Open(path, key, chatdb.SystemClock{}, chatdb.RandomUuidGen{})
}

var chatdbSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions",
	RunE:  runChatdbSessions,
}

func runChatdbSessions(cmd *cobra.Command, args []string) error {
	db, err := openChatDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "UUID\tTITLE\tCREATED\tUPDATED\tNEEDS SYNC\n")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n", s.UUID, s.Title, s.CreatedAt, s.UpdatedAt, s.NeedsSync)
	}
	w.Flush()
	fmt.Printf("\nTotal sessions: %d\n", len(sessions))
	return nil
}

var chatdbMessagesSessionID string

var chatdbMessagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List messages in a session",
	RunE:  runChatdbMessages,
}

func init() {
	chatdbMessagesCmd.Flags().StringVarP(&chatdbMessagesSessionID, "session", "s", "", "Session UUID (required)")
	chatdbMessagesCmd.MarkFlagRequired("session")
}

func runChatdbMessages(cmd *cobra.Command, args []string) error {
	sessionUUID, err := uuid.Parse(chatdbMessagesSessionID)
	if err != nil {
		return fmt.Errorf("invalid --session: %w", err)
	}

	db, err := openChatDB()
	if err != nil {
		return err
	}
	defer db.Close()

	messages, err := db.GetMessages(sessionUUID)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "UUID\tSENDER\tTEXT\tCREATED\n")
	for _, m := range messages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.UUID, m.Sender, m.Text, m.CreatedAt)
	}
	w.Flush()
	fmt.Printf("\nTotal messages: %d\n", len(messages))
	return nil
}

var (
	chatdbSendSessionID string
	chatdbSendText      string
	chatdbSendSender    string
)

var chatdbSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Insert a message into a session",
	RunE:  runChatdbSend,
}

func init() {
	chatdbSendCmd.Flags().StringVarP(&chatdbSendSessionID, "session", "s", "", "Session UUID (required)")
	chatdbSendCmd.Flags().StringVarP(&chatdbSendText, "text", "t", "", "Message text (required)")
	chatdbSendCmd.Flags().StringVar(&chatdbSendSender, "sender", "self", "Sender (self, other)")
	chatdbSendCmd.MarkFlagRequired("session")
	chatdbSendCmd.MarkFlagRequired("text")
}

func runChatdbSend(cmd *cobra.Command, args []string) error {
	sessionUUID, err := uuid.Parse(chatdbSendSessionID)
	if err != nil {
		return fmt.Errorf("invalid --session: %w", err)
	}
	sender, err := chatdb.ParseSender(chatdbSendSender)
	if err != nil {
		return fmt.Errorf("invalid --sender: %w", err)
	}

	db, err := openChatDB()
	if err != nil {
		return err
	}
	defer db.Close()

	msg, err := db.InsertMessage(sessionUUID, sender, chatdbSendText, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	fmt.Printf("Inserted message %s\n", msg.UUID)
	return nil
}
