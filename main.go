package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configFile string
	verbose    bool

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "takehome",
	Short: "UK take-home pay calculator",
	Long: `Calculates UK take-home pay for one tax year.

Starting from salary and bonus it deducts the employee pension contribution,
salary sacrifice schemes, income tax (with the Personal Allowance taper),
National Insurance and the nursery fees left after funded childcare hours.

Tax and NI bands, the taper and the childcare rules are read from a YAML
config. Without --config the built-in 2024/25 figures are used.

Figures are approximate and not a substitute for HMRC calculations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// computeCmd prints the breakdown for one set of inputs
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Calculate take-home pay for the given inputs",
	Example: `  takehome compute --salary 50000 --employee-pension 5
  takehome compute --salary 98000 --children-young 2 --nursery-rate 9.5 --nursery-hours 40
  takehome compute --config my.yaml --json`,
	RunE: runCompute,
}

// serveCmd starts the web UI and JSON API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web calculator",
	RunE:  runServe,
}

// reportCmd writes a PDF statement
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a PDF breakdown for the given inputs",
	RunE:  runReport,
}

// sweepCmd evaluates a salary range
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Show take-home pay across a range of salaries",
	Long: `Runs the calculation for every salary in a range, keeping all other
inputs fixed, and shows how much of each extra step is lost to deductions.
Rows losing more than 60% are highlighted.`,
	RunE: runSweep,
}

// watchCmd recomputes whenever an inputs file is saved
var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Recalculate whenever an inputs file changes",
	Example: `  takehome watch --inputs inputs.yaml`,
	RunE:    runWatch,
}

// interactiveCmd asks for each input in turn
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Answer prompts for each input and see the breakdown",
	RunE:  runInteractive,
}

// initConfigCmd writes the built-in configuration to a file
var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration to a file for editing",
	RunE:  runInitConfig,
}

var (
	inputs      inputFlags
	computeJSON bool

	serveAddr string
	serveOpen bool

	reportOutput    string
	reportWithSweep bool

	sweepMin     decimalFlag
	sweepMax     decimalFlag
	sweepStep    decimalFlag
	sweepWorkers int

	watchInputs string

	interactiveSave string

	initConfigOutput string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to YAML configuration file; built-in 2024/25 figures are used if the default file is absent")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	for _, cmd := range []*cobra.Command{computeCmd, reportCmd, sweepCmd} {
		inputs.register(cmd)
	}
	computeCmd.Flags().BoolVar(&computeJSON, "json", false, "Print the result and warnings as JSON")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the calculator in the default browser")

	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "take-home.pdf", "PDF file to write")
	reportCmd.Flags().BoolVar(&reportWithSweep, "sweep", false, "Append the configured salary sweep to the report")

	sweepCmd.Flags().Var(&sweepMin, "min", "Lowest salary (default: sweep.salary_min from config)")
	sweepCmd.Flags().Var(&sweepMax, "max", "Highest salary (default: sweep.salary_max from config)")
	sweepCmd.Flags().Var(&sweepStep, "step", "Salary step (default: sweep.step from config)")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "Concurrent workers (default: sweep.workers from config)")

	watchCmd.Flags().StringVarP(&watchInputs, "inputs", "i", "inputs.yaml", "YAML file holding the inputs section")

	interactiveCmd.Flags().StringVar(&interactiveSave, "save", "", "Also write the answers to this inputs file (for watch)")

	initConfigCmd.Flags().StringVarP(&initConfigOutput, "output", "o", "config.yaml", "File to write")

	rootCmd.AddCommand(computeCmd, serveCmd, reportCmd, sweepCmd, watchCmd, interactiveCmd, initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads --config. A missing file is only an error when the flag was set explicitly.
func loadConfig() (*Config, error) {
	if rootCmd.PersistentFlags().Changed("config") {
		return LoadConfig(configFile)
	}
	return LoadConfigOrDefault(configFile)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCompute(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	in := inputs.apply(cmd, config.Inputs)
	logger.Debug("computing", zap.String("tax_year", config.TaxYear), zap.String("salary", in.Salary.String()))
	result := Compute(in, config)
	warnings := Warnings(result, config)

	if computeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Result   DeductionResult `json:"result"`
			Warnings []Warning       `json:"warnings"`
		}{result, warnings})
	}

	PrintBreakdown(cmd.OutOrStdout(), result, warnings)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	addr := config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, cancel := signalContext()
	defer cancel()

	var cache ResultCache = NewMemoryCache()
	if config.Server.RedisAddr != "" {
		redisCache := NewRedisCache(config.Server.RedisAddr, config.Server.CacheTTL)
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisCache.Ping(pingCtx)
		pingCancel()
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache",
				zap.String("addr", config.Server.RedisAddr), zap.Error(err))
			_ = redisCache.Close()
		} else {
			logger.Info("using redis cache", zap.String("addr", config.Server.RedisAddr))
			defer redisCache.Close()
			cache = redisCache
		}
	}

	server := NewWebServer(config, addr, cache, logger)
	return server.Start(ctx, serveOpen)
}

func runReport(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	in := inputs.apply(cmd, config.Inputs)
	calc := NewCalculator(config)
	result := calc.Compute(in)

	var points []SweepPoint
	if reportWithSweep {
		ctx, cancel := signalContext()
		defer cancel()
		req := SweepRequestFromConfig(config)
		req.Base = in
		points, err = RunSalarySweep(ctx, calc, req)
		if err != nil {
			return fmt.Errorf("salary sweep: %w", err)
		}
	}

	pdfBytes, err := GenerateBreakdownPDF(in, result, Warnings(result, config), points)
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportOutput, pdfBytes, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info("report written", zap.String("path", reportOutput), zap.Int("bytes", len(pdfBytes)))
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportOutput)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	req := SweepRequestFromConfig(config)
	req.Base = inputs.apply(cmd, config.Inputs)
	if cmd.Flags().Changed("min") {
		req.SalaryMin = sweepMin.Decimal
	}
	if cmd.Flags().Changed("max") {
		req.SalaryMax = sweepMax.Decimal
	}
	if cmd.Flags().Changed("step") {
		req.Step = sweepStep.Decimal
	}
	if sweepWorkers > 0 {
		req.Workers = sweepWorkers
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	points, err := RunSalarySweep(ctx, NewCalculator(config), req)
	if err != nil {
		return fmt.Errorf("salary sweep: %w", err)
	}
	logger.Debug("sweep complete", zap.Int("points", len(points)), zap.Duration("elapsed", time.Since(start)))

	PrintSweep(cmd.OutOrStdout(), points)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	watcher, err := NewInputsWatcher(watchInputs, NewCalculator(config), func(_ TaxpayerInputs, result DeductionResult) {
		fmt.Fprint(out, "\033[H\033[2J")
		PrintBreakdown(out, result, Warnings(result, config))
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return err
	}
	defer watcher.Stop()

	select {
	case <-ctx.Done():
	case <-watcher.Done():
	}
	return nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	prompter := NewInputsPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	in := prompter.PromptInputs(config.Inputs)

	if interactiveSave != "" {
		if err := SaveInputs(in, interactiveSave); err != nil {
			return err
		}
		logger.Info("inputs saved", zap.String("path", interactiveSave))
	}

	result := Compute(in, config)
	fmt.Fprintln(cmd.OutOrStdout())
	PrintBreakdown(cmd.OutOrStdout(), result, Warnings(result, config))
	return nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initConfigOutput); err == nil {
		return fmt.Errorf("%s already exists", initConfigOutput)
	}
	config, err := LoadDefaultConfig()
	if err != nil {
		return err
	}
	if err := SaveConfig(config, initConfigOutput); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", initConfigOutput)
	return nil
}

// decimalFlag is a command-line flag holding a decimal amount
type decimalFlag struct {
	decimal.Decimal
}

func (f *decimalFlag) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	f.Decimal = d
	return nil
}

func (f *decimalFlag) Type() string {
	return "decimal"
}

// inputFlags binds one flag per TaxpayerInputs field. Only flags the user
// sets override the config's inputs section.
type inputFlags struct {
	salary          decimalFlag
	bonus           decimalFlag
	employeePension decimalFlag
	employerPension decimalFlag
	electricCar     decimalFlag
	bikeToWork      decimalFlag
	nurseryRate     decimalFlag
	nurseryHours    decimalFlag
	childrenYoung   int
	childrenMid     int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Var(&f.salary, "salary", "Annual salary")
	flags.Var(&f.bonus, "bonus", "Annual bonus")
	flags.Var(&f.employeePension, "employee-pension", "Employee pension contribution, percent of gross")
	flags.Var(&f.employerPension, "employer-pension", "Employer pension contribution, percent of gross")
	flags.Var(&f.electricCar, "electric-car", "Annual electric car salary sacrifice")
	flags.Var(&f.bikeToWork, "bike-to-work", "Annual bike-to-work salary sacrifice")
	flags.Var(&f.nurseryRate, "nursery-rate", "Nursery cost per hour")
	flags.Var(&f.nurseryHours, "nursery-hours", "Nursery hours per week per child")
	flags.IntVar(&f.childrenYoung, "children-young", 0, "Children aged 9 months to 3 years")
	flags.IntVar(&f.childrenMid, "children-mid", 0, "Children aged 3 to 4 years")
}

func (f *inputFlags) apply(cmd *cobra.Command, base TaxpayerInputs) TaxpayerInputs {
	changed := cmd.Flags().Changed
	set := func(name string, dst *decimal.Decimal, src decimalFlag) {
		if changed(name) {
			*dst = src.Decimal
		}
	}
	set("salary", &base.Salary, f.salary)
	set("bonus", &base.Bonus, f.bonus)
	set("employee-pension", &base.EmployeePensionPercent, f.employeePension)
	set("employer-pension", &base.EmployerPensionPercent, f.employerPension)
	set("electric-car", &base.ElectricCarSacrifice, f.electricCar)
	set("bike-to-work", &base.BikeToWorkSacrifice, f.bikeToWork)
	set("nursery-rate", &base.NurseryCostPerHour, f.nurseryRate)
	set("nursery-hours", &base.NurseryHoursPerWeek, f.nurseryHours)
	if changed("children-young") {
		base.ChildrenYoung = f.childrenYoung
	}
	if changed("children-mid") {
		base.ChildrenMid = f.childrenMid
	}
	return base
}
