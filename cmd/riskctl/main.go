// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package main implements the riskctl CLI for operating a Contract Risk
// Sentinel deployment: seeding the contract book, submitting risk jobs,
// triggering market shocks, and load-testing the worker pool.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/registry"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

var version = "1.0.0"

var (
	contractsURL string
	riskURL      string
	marketURL    string
	token        string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "riskctl",
		Short:   "Contract Risk Sentinel CLI",
		Long:    `riskctl drives the risk platform's tool servers: seed contracts, submit jobs, simulate market shocks.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&contractsURL, "contracts-url", "http://localhost:8001", "mcp-contracts base URL")
	rootCmd.PersistentFlags().StringVar(&riskURL, "risk-url", "http://localhost:8002", "mcp-risk base URL")
	rootCmd.PersistentFlags().StringVar(&marketURL, "market-url", "http://localhost:8003", "mcp-market base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token for authenticated tool servers")

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(contractsCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(resultCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(shockCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(loadCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// call invokes a tool route and unwraps the response envelope.
func call(ctx context.Context, method, url string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%s %s: status %d: %w", method, url, resp.StatusCode, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, envelope.Error)
	}
	return envelope.Data, nil
}

func printJSON(data json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}

// seedCmd loads the sample contract book into the registry.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the registry with the sample contract book",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			created, skipped := 0, 0
			for _, c := range registry.SampleBook() {
				_, err := call(ctx, http.MethodPost, contractsURL+"/contracts", c)
				if err != nil {
					// Re-running seed against a populated book is fine.
					fmt.Printf("skip %s: %v\n", c.ContractID, err)
					skipped++
					continue
				}
				fmt.Printf("created %s (%s %s)\n", c.ContractID, c.ContractType, c.Counterparty)
				created++
			}
			fmt.Printf("%d created, %d skipped\n", created, skipped)
			return nil
		},
	}
}

func contractsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contracts",
		Short: "List every contract in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := call(cmd.Context(), http.MethodGet, contractsURL+"/contracts", nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
}

// submitCmd submits one risk job and prints the accepted job record.
func submitCmd() *cobra.Command {
	var (
		jobType    string
		confidence float64
		sims       int
		horizon    int
		shiftBps   float64
	)
	cmd := &cobra.Command{
		Use:   "submit <contract-id>",
		Short: "Submit a risk computation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := submitJob(cmd.Context(), args[0], jobType, confidence, sims, horizon, shiftBps)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobType, "type", "fx_var", "job type: fx_var, ir_dv01, or stress_test")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.99, "VaR confidence level")
	cmd.Flags().IntVar(&sims, "sims", 20000, "Monte Carlo simulation count")
	cmd.Flags().IntVar(&horizon, "horizon", 1, "VaR horizon in days")
	cmd.Flags().Float64Var(&shiftBps, "shift-bps", 1.0, "DV01 curve shift in basis points")
	return cmd
}

func submitJob(ctx context.Context, contractID, jobType string, confidence float64, sims, horizon int, shiftBps float64) (json.RawMessage, error) {
	switch contracts.RiskJobType(jobType) {
	case contracts.JobTypeFXVaR:
		return call(ctx, http.MethodPost, riskURL+"/run_fx_var", map[string]interface{}{
			"contract_id":  contractID,
			"confidence":   confidence,
			"simulations":  sims,
			"horizon_days": horizon,
		})
	case contracts.JobTypeIRDv01:
		return call(ctx, http.MethodPost, riskURL+"/run_ir_dv01", map[string]interface{}{
			"contract_id": contractID,
			"shift_bps":   shiftBps,
		})
	case contracts.JobTypeStressTest:
		return call(ctx, http.MethodPost, riskURL+"/run_stress_test", map[string]interface{}{
			"contract_id": contractID,
		})
	default:
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
}

func resultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <job-id>",
		Short: "Get the status and result of a risk job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := call(cmd.Context(), http.MethodGet, riskURL+"/risk_result/"+args[0], nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
}

func jobsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List risk jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := riskURL + "/jobs"
			if status != "" {
				url += "?status=" + status
			}
			data, err := call(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status: pending, processing, succeeded, failed")
	return cmd
}

// shockCmd moves a spot rate so the orchestrator's monitor fires.
func shockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shock <currency-pair> <percent>",
		Short: "Apply a percentage shock to a currency pair's spot rate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pct float64
			if _, err := fmt.Sscanf(args[1], "%f", &pct); err != nil {
				return fmt.Errorf("invalid shock percent %q", args[1])
			}
			data, err := call(cmd.Context(), http.MethodPost, marketURL+"/simulate_shock", map[string]interface{}{
				"currency_pair": args[0],
				"shock_pct":     pct,
			})
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset market data to baseline quotes",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := call(cmd.Context(), http.MethodPost, marketURL+"/reset_market_data", nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
}

// loadCmd floods the job queue to exercise KEDA worker scaling.
func loadCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit a burst of jobs across the sample book",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			book := registry.SampleBook()
			submitted := 0
			for i := 0; i < count; i++ {
				c := book[i%len(book)]
				jobType := string(contracts.JobTypeFXVaR)
				if c.ContractType == contracts.ContractTypeIRS {
					jobType = string(contracts.JobTypeIRDv01)
				}
				if _, err := submitJob(ctx, c.ContractID, jobType, 0.99, 20000, 1, 1.0); err != nil {
					return fmt.Errorf("after %d jobs: %w", submitted, err)
				}
				submitted++
			}
			fmt.Printf("submitted %d jobs\n", submitted)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of jobs to submit")
	return cmd
}
