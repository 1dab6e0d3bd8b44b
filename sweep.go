package main

import (
	"context"
	"errors"
	"runtime"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// maxSweepPoints bounds a sweep so a tiny step cannot allocate without limit
const maxSweepPoints = 10000

// SweepPoint is one salary in a sweep
type SweepPoint struct {
	Salary            decimal.Decimal `json:"salary"`
	Result            DeductionResult `json:"result"`
	MarginalDeduction decimal.Decimal `json:"marginal_deduction"` // Share of the next step lost to deductions
}

// SweepRequest describes the salary range to evaluate.
// Every other input is taken from Base.
type SweepRequest struct {
	Base      TaxpayerInputs  `json:"base"`
	SalaryMin decimal.Decimal `json:"salary_min"`
	SalaryMax decimal.Decimal `json:"salary_max"`
	Step      decimal.Decimal `json:"step"`
	Workers   int             `json:"workers,omitempty"`
}

// SweepRequestFromConfig fills a request from the sweep section and default inputs
func SweepRequestFromConfig(config *Config) SweepRequest {
	return SweepRequest{
		Base:      config.Inputs,
		SalaryMin: config.Sweep.SalaryMin,
		SalaryMax: config.Sweep.SalaryMax,
		Step:      config.Sweep.Step,
		Workers:   config.Sweep.Workers,
	}
}

// buildSalaries generates salaries from min to max inclusive with the given step
func buildSalaries(min, max, step decimal.Decimal) ([]decimal.Decimal, error) {
	if !step.IsPositive() {
		return nil, errors.New("sweep step must be positive")
	}
	min = nonNegative(min)
	if max.LessThan(min) {
		return nil, errors.New("sweep salary_max is below salary_min")
	}
	// Checked in decimal so a huge range cannot overflow int64
	steps := max.Sub(min).Div(step)
	if steps.GreaterThanOrEqual(decimal.NewFromInt(maxSweepPoints)) {
		return nil, errors.New("sweep range produces too many points; use a larger step")
	}
	count := steps.IntPart() + 1

	salaries := make([]decimal.Decimal, 0, count)
	for s := min; s.LessThanOrEqual(max); s = s.Add(step) {
		salaries = append(salaries, s)
	}
	return salaries, nil
}

// RunSalarySweep computes the pipeline across a salary range.
// Points are computed concurrently but returned in ascending salary order.
// The marginal deduction of a point is measured against the next point,
// so the last point carries zero.
func RunSalarySweep(ctx context.Context, calc *Calculator, req SweepRequest) ([]SweepPoint, error) {
	salaries, err := buildSalaries(req.SalaryMin, req.SalaryMax, req.Step)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	points := make([]SweepPoint, len(salaries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, salary := range salaries {
		i, salary := i, salary
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			points[i] = SweepPoint{
				Salary: salary,
				Result: calc.Compute(req.Base.WithSalary(salary)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(points); i++ {
		points[i].MarginalDeduction = marginalDeduction(points[i], points[i+1])
	}
	return points, nil
}

// marginalDeduction returns the fraction of the extra gross income between
// two points that does not reach take-home pay.
func marginalDeduction(from, to SweepPoint) decimal.Decimal {
	extraGross := to.Result.GrossIncome.Sub(from.Result.GrossIncome)
	if !extraGross.IsPositive() {
		return decimal.Zero
	}
	extraTakeHome := to.Result.TakeHome.Sub(from.Result.TakeHome)
	return extraGross.Sub(extraTakeHome).Div(extraGross)
}
