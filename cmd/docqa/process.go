package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentqaflow/internal/events"
	"github.com/Lllllllleong/documentqaflow/internal/models"
)

func newProcessCmd() *cobra.Command {
	var (
		reset   bool
		encoded bool
	)
	cmd := &cobra.Command{
		Use:   "process <object-key>",
		Short: "Run the processing pipeline for one uploaded object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if encoded {
				decoded, err := events.DecodeKey(key)
				if err != nil {
					return err
				}
				key = decoded
			}

			rt, cfg, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if reset {
				if err := rt.Processor.MarkProcessing(cmd.Context(), key); err != nil {
					return err
				}
			}
			res, err := rt.Processor.Process(cmd.Context(), cfg.UploadBucket, key)
			if err != nil {
				return err
			}

			out := models.ProcessResponse{
				Status:     res.Status,
				DocumentID: res.ID.Key,
				OwnerID:    res.ID.OwnerID,
				Recorded:   res.Recorded,
				Skipped:    res.Skipped,
			}
			if res.Cause != nil {
				out.Error = res.Cause.Error()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "set the record back to PROCESSING before running")
	cmd.Flags().BoolVar(&encoded, "encoded", false, "the key is percent-encoded, as delivered by notifications")
	return cmd
}
