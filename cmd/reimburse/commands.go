package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Adda-Baaj/reimbursement-client/internal/config"
	"github.com/Adda-Baaj/reimbursement-client/internal/logger"
	"github.com/Adda-Baaj/reimbursement-client/pkg/httpclient"
	"github.com/Adda-Baaj/reimbursement-client/pkg/reimbursement"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	origin  string
	timeout time.Duration
	client  *reimbursement.Client
}

// newRootCommand builds the reimburse command tree. Flags override API_ORIGIN
// and REQUEST_TIMEOUT_SECONDS from the environment.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "reimburse",
		Short:         "Command line client for the reimbursement API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
	}
	root.PersistentFlags().StringVar(&opts.origin, "origin", "", "API origin, e.g. https://claims.example.com (default $API_ORIGIN)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "request timeout (default $REQUEST_TIMEOUT_SECONDS)")

	root.AddCommand(
		newListCommand(opts),
		newByEmailCommand(opts),
		newPendingCommand(opts),
		newByStatusCommand(opts),
		newCreateCommand(opts),
		newUpdateStatusCommand(opts),
		newDeleteCommand(opts),
		newLogsCommand(opts),
	)
	return root
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("origin") {
		cfg.APIOrigin = o.origin
	}
	if cmd.Flags().Changed("timeout") {
		if o.timeout <= 0 {
			return errors.New("--timeout must be positive")
		}
		cfg.RequestTimeout = o.timeout
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	client, err := reimbursement.New(cfg.APIOrigin, httpclient.NewRestyClient(cfg.RequestTimeout), log)
	if err != nil {
		return err
	}
	o.client = client
	return nil
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every reimbursement request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.ListRequests(cmd.Context())
			})
		},
	}
}

func newByEmailCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "by-email EMAIL",
		Short: "List requests submitted by an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.ListRequestsByEmail(cmd.Context(), args[0])
			})
		},
	}
}

func newPendingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List requests waiting for approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.ListPendingRequests(cmd.Context())
			})
		},
	}
}

func newByStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "by-status STATUS",
		Short: "List requests in the given status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.ListRequestsByStatus(cmd.Context(), args[0])
			})
		},
	}
}

type createOptions struct {
	jsonFile string
	file     string
	claim    reimbursement.Claim
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	co := &createOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a reimbursement request",
		Long: `Submit a reimbursement request either as a JSON document (--json FILE, "-" for stdin)
or as a claim with a receipt upload (--file plus the claim flags).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, closeFn, err := co.payload(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeFn()
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.CreateRequest(cmd.Context(), payload)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&co.jsonFile, "json", "", "JSON document to submit")
	f.StringVar(&co.file, "file", "", "receipt to upload with the claim")
	f.StringVar(&co.claim.EmpName, "name", "", "employee name")
	f.StringVar(&co.claim.EmpID, "emp-id", "", "employee id")
	f.StringVar(&co.claim.EmpAmount, "amount", "", "claimed amount")
	f.StringVar(&co.claim.EmpDate, "date", "", "expense date")
	f.StringVar(&co.claim.EmpReason, "reason", "", "expense reason")
	f.StringVar(&co.claim.UploadedBy, "uploaded-by", "", "email of the submitter")
	cmd.MarkFlagsMutuallyExclusive("json", "file")
	cmd.MarkFlagsOneRequired("json", "file")
	return cmd
}

func (co *createOptions) payload(stdin io.Reader) (reimbursement.Payload, func(), error) {
	noop := func() {}
	if co.jsonFile != "" {
		var (
			data []byte
			err  error
		)
		if co.jsonFile == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(co.jsonFile)
		}
		if err != nil {
			return nil, noop, fmt.Errorf("read json payload: %w", err)
		}
		if !json.Valid(data) {
			return nil, noop, fmt.Errorf("json payload %s is not valid JSON", co.jsonFile)
		}
		return reimbursement.JSONPayload{Value: json.RawMessage(data)}, noop, nil
	}

	receipt, err := os.Open(co.file)
	if err != nil {
		return nil, noop, fmt.Errorf("open receipt: %w", err)
	}
	payload := reimbursement.NewClaimPayload(co.claim, reimbursement.FormFile{
		Name:   filepath.Base(co.file),
		Reader: receipt,
	})
	return payload, func() { _ = receipt.Close() }, nil
}

func newUpdateStatusCommand(opts *rootOptions) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "update-status ID STATUS",
		Short: "Approve, reject or otherwise move a request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.UpdateRequestStatus(cmd.Context(), args[0], args[1], reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded with the status change")
	return cmd
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.DeleteRequest(cmd.Context(), args[0])
			})
		},
	}
}

func newLogsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Print the activity log; prints [] when it cannot be fetched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, func() (json.RawMessage, error) {
				return opts.client.FetchLogs(cmd.Context()), nil
			})
		},
	}
}

// printResult runs call and writes its JSON result indented to stdout.
func printResult(cmd *cobra.Command, call func() (json.RawMessage, error)) error {
	raw, err := call()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
