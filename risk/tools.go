// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package risk

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
)

// Defaults for FX VaR submissions.
const (
	DefaultHorizonDays = 1
	DefaultConfidence  = 0.99
	DefaultSimulations = 20000
	DefaultShiftBps    = 1.0
)

// BuildRegistry assembles the risk tool set over a submission service.
func BuildRegistry(svc *Service) *toolserver.Registry {
	reg := toolserver.NewRegistry()

	submit := func(ctx context.Context, jobType contracts.RiskJobType, args, params map[string]interface{}) (interface{}, error) {
		contractID := toolserver.String(args, "contract_id")
		if contractID == "" {
			return nil, toolserver.Errorf(http.StatusBadRequest, "contract_id is required")
		}
		rec, err := svc.Submit(ctx, jobType, contractID, params)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"job_id":  rec.JobID,
			"status":  string(rec.Status),
			"message": "Job submitted successfully",
		}, nil
	}

	reg.Register(toolserver.Tool{
		Name:        "run_fx_var",
		Description: "Submit an FX Value-at-Risk calculation job",
		Method:      http.MethodPost,
		Path:        "/run_fx_var",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			confidence := toolserver.Float(args, "confidence", DefaultConfidence)
			if confidence <= 0 || confidence >= 1 {
				return nil, toolserver.Errorf(http.StatusBadRequest, "confidence must be in (0, 1)")
			}
			sims := toolserver.Int(args, "simulations", DefaultSimulations)
			if sims < 1 {
				return nil, toolserver.Errorf(http.StatusBadRequest, "simulations must be at least 1")
			}
			params := map[string]interface{}{
				"horizon_days": toolserver.Int(args, "horizon_days", DefaultHorizonDays),
				"confidence":   confidence,
				"sims":         sims,
			}
			return submit(ctx, contracts.JobTypeFXVaR, args, params)
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "run_ir_dv01",
		Description: "Submit an interest-rate DV01 calculation job",
		Method:      http.MethodPost,
		Path:        "/run_ir_dv01",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			params := map[string]interface{}{
				"shift_bps": toolserver.Float(args, "shift_bps", DefaultShiftBps),
			}
			return submit(ctx, contracts.JobTypeIRDv01, args, params)
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "run_stress_test",
		Description: "Submit a stress-test job revaluing a contract under a shock grid",
		Method:      http.MethodPost,
		Path:        "/run_stress_test",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return submit(ctx, contracts.JobTypeStressTest, args, map[string]interface{}{})
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "get_risk_result",
		Description: "Get the status and result of a risk job",
		Method:      http.MethodGet,
		Path:        "/risk_result/{job_id}",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			jobID := toolserver.String(args, "job_id")
			if jobID == "" {
				return nil, toolserver.Errorf(http.StatusBadRequest, "job_id is required")
			}
			rec, err := svc.store.Get(ctx, jobID)
			if errors.Is(err, ErrJobNotFound) {
				return nil, toolserver.Errorf(http.StatusNotFound, "job %s not found", jobID)
			}
			if err != nil {
				return nil, err
			}
			return rec, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "list_jobs",
		Description: "List risk jobs, optionally filtered by status",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			status := contracts.RiskJobStatus(toolserver.String(args, "status"))
			if status != "" && !status.Valid() {
				return nil, toolserver.Errorf(http.StatusBadRequest, "unknown status %q", status)
			}
			jobs, err := svc.store.List(ctx, status)
			if err != nil {
				return nil, err
			}
			if jobs == nil {
				jobs = []JobRecord{}
			}
			return map[string]interface{}{
				"jobs":  jobs,
				"count": len(jobs),
			}, nil
		},
	})

	return reg
}
