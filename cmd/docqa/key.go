package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentqaflow/internal/docid"
)

type keyOutput struct {
	Key      string `json:"key"`
	OwnerID  string `json:"owner_id"`
	Token    string `json:"token,omitempty"`
	Filename string `json:"filename,omitempty"`
	Resolved bool   `json:"resolved"`
}

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Encode or decode document keys",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "encode <owner-id> <filename>",
			Short: "Build a fresh document key",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return writeKey(cmd, docid.Encode(args[0], args[1]))
			},
		},
		&cobra.Command{
			Use:   "decode <key>",
			Short: "Show the fields packed into a document key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return writeKey(cmd, docid.Decode(args[0]))
			},
		},
	)
	return cmd
}

func writeKey(cmd *cobra.Command, id docid.Identifier) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(keyOutput{
		Key:      id.Key,
		OwnerID:  id.OwnerID,
		Token:    id.Token,
		Filename: id.Filename,
		Resolved: id.Resolved(),
	})
}
