package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ryabov/medconv/internal/config"
	"github.com/ryabov/medconv/internal/export"
	"github.com/ryabov/medconv/internal/model"
	"github.com/ryabov/medconv/pkg/medconv"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "medconv",
	Short: "Decode legacy PNP spirometer and ZAK rheograph files",
	Long: `medconv is a tool for recovering structured data from legacy
clinical instrument files.

It decodes binary PNP spirometer captures (tag-located measurement
blocks, BTPS correction) and ZAK rheograph text reports (tabular
measurements, clinical conclusions), and exports the results as JSON,
spreadsheet workbooks, or zip bundles.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./medconv.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and wires the logger before any command
// runs.
func setup(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	levelName := cfg.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		levelName = override
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// decodeOptions combines configured defaults with per-command overrides.
func decodeOptions(cmd *cobra.Command) (medconv.Options, error) {
	opts := medconv.Options{
		FallbackBtpsFactor: cfg.BtpsFactor,
		O2PerLiter:         cfg.O2PerLiter,
	}
	var err error
	if opts.PnpDecoder, err = config.Decoder(cfg.PnpCodepage); err != nil {
		return opts, fmt.Errorf("pnp codepage: %w", err)
	}
	if opts.ZakDecoder, err = config.Decoder(cfg.ZakCodepage); err != nil {
		return opts, fmt.Errorf("zak codepage: %w", err)
	}
	if f := cmd.Flags().Lookup("btps-factor"); f != nil && f.Changed {
		opts.FallbackBtpsFactor, _ = cmd.Flags().GetFloat64("btps-factor")
	}
	if f := cmd.Flags().Lookup("o2-per-liter"); f != nil && f.Changed {
		opts.O2PerLiter, _ = cmd.Flags().GetFloat64("o2-per-liter")
	}
	return opts, nil
}

// decodeFile reads and decodes one input file, honoring a forced kind.
func decodeFile(path, kind string, opts medconv.Options) (*medconv.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	name := filepath.Base(path)
	switch kind {
	case "pnp":
		return &medconv.Result{Format: medconv.FormatPNP, PNP: medconv.DecodePNP(data, name, opts)}, nil
	case "zak":
		return &medconv.Result{Format: medconv.FormatZAK, ZAK: medconv.DecodeZAK(data, name, opts)}, nil
	case "auto":
		res, err := medconv.Decode(data, name, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unknown kind: %s", kind)
	}
}

func resultJSON(res *medconv.Result) ([]byte, error) {
	if res.Format == medconv.FormatPNP {
		return export.PnpJSON(res.PNP)
	}
	return export.ZakJSON(res.ZAK)
}

// splitResults partitions decode results into the per-format record lists
// the workbook builder takes.
func splitResults(results []*medconv.Result) ([]*model.PnpRecord, []*model.ZakRecord) {
	var pnp []*model.PnpRecord
	var zak []*model.ZakRecord
	for _, res := range results {
		switch res.Format {
		case medconv.FormatPNP:
			pnp = append(pnp, res.PNP)
		case medconv.FormatZAK:
			zak = append(zak, res.ZAK)
		}
	}
	return pnp, zak
}

// decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <input>",
	Short: "Decode a single PNP or ZAK file",
	Long: `Decode one legacy file and print or save the structured result.

The format is detected from the file extension and contents, or forced
with --kind. JSON goes to stdout unless --output is given; spreadsheet
output requires --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	decodeCmd.Flags().String("format", "json", "Output format: json, xlsx")
	decodeCmd.Flags().String("kind", "auto", "Input kind: auto, pnp, zak")
	decodeCmd.Flags().Float64("btps-factor", 0, "Fallback BTPS correction factor")
	decodeCmd.Flags().Float64("o2-per-liter", 0, "O2 extraction constant, mL/L")
}

func runDecode(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	kind, _ := cmd.Flags().GetString("kind")

	opts, err := decodeOptions(cmd)
	if err != nil {
		return err
	}
	res, err := decodeFile(args[0], kind, opts)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := resultJSON(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if outputPath == "" {
			fmt.Println(string(data))
			return nil
		}
		return os.WriteFile(outputPath, data, 0o644)
	case "xlsx":
		if outputPath == "" {
			return fmt.Errorf("xlsx output requires --output")
		}
		pnp, zak := splitResults([]*medconv.Result{res})
		f, err := export.Workbook(pnp, zak)
		if err != nil {
			return fmt.Errorf("build workbook: %w", err)
		}
		if err := f.SaveAs(outputPath); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// batch command
var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Decode every PNP/ZAK file under a directory",
	Long: `Walk a directory, decode every recognized file in parallel, and
save the results.

Per-file JSON documents go to --output-dir or into a --zip bundle; a
combined spreadsheet is written when --xlsx is given. Files that match
neither format are skipped with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringP("output-dir", "o", "", "Directory for per-file JSON results")
	batchCmd.Flags().String("zip", "", "Write per-file JSON results into a zip bundle")
	batchCmd.Flags().String("xlsx", "", "Write a combined spreadsheet workbook")
	batchCmd.Flags().Int("workers", runtime.NumCPU(), "Parallel decode workers")
	batchCmd.Flags().Float64("btps-factor", 0, "Fallback BTPS correction factor")
	batchCmd.Flags().Float64("o2-per-liter", 0, "O2 extraction constant, mL/L")
}

func runBatch(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	zipPath, _ := cmd.Flags().GetString("zip")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 1 {
		workers = 1
	}
	if outputDir == "" && zipPath == "" && xlsxPath == "" {
		return fmt.Errorf("batch needs at least one of --output-dir, --zip, --xlsx")
	}

	opts, err := decodeOptions(cmd)
	if err != nil {
		return err
	}
	paths, err := collectInputs(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no decodable files under %s", args[0])
	}
	logrus.WithFields(logrus.Fields{"files": len(paths), "workers": workers}).
		Info("starting batch decode")

	results := decodeAll(paths, workers, opts)
	if len(results) == 0 {
		return fmt.Errorf("no file under %s decoded successfully", args[0])
	}

	if outputDir != "" {
		if err := writeResultDir(outputDir, results); err != nil {
			return err
		}
	}
	if zipPath != "" {
		if err := writeResultZip(zipPath, results); err != nil {
			return err
		}
	}
	if xlsxPath != "" {
		pnp, zak := splitResults(results)
		f, err := export.Workbook(pnp, zak)
		if err != nil {
			return fmt.Errorf("build workbook: %w", err)
		}
		if err := f.SaveAs(xlsxPath); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
	}
	logrus.WithField("decoded", len(results)).Info("batch complete")
	return nil
}

// collectInputs walks the directory for files with a recognized extension.
func collectInputs(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pnp", ".zak":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// decodeAll runs the decoders over the paths with a fixed-size worker
// pool. Decoding is pure and shares no state, so the only coordination is
// the job channel and the result collection.
func decodeAll(paths []string, workers int, opts medconv.Options) []*medconv.Result {
	jobs := make(chan string)
	out := make(chan *medconv.Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				res, err := decodeFile(path, "auto", opts)
				if err != nil {
					logrus.WithError(err).WithField("file", path).Warn("skipping file")
					continue
				}
				logrus.WithFields(logrus.Fields{"file": path, "format": res.Format}).
					Debug("decoded")
				out <- res
			}
		}()
	}
	go func() {
		for _, path := range paths {
			jobs <- path
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	var results []*medconv.Result
	for res := range out {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		return resultName(results[i]) < resultName(results[j])
	})
	return results
}

func resultName(res *medconv.Result) string {
	if res.Format == medconv.FormatPNP {
		return res.PNP.File
	}
	return res.ZAK.File
}

func writeResultDir(dir string, results []*medconv.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, res := range results {
		data, err := resultJSON(res)
		if err != nil {
			return fmt.Errorf("encode %s: %w", resultName(res), err)
		}
		path := filepath.Join(dir, export.JSONName(resultName(res)))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func writeResultZip(path string, results []*medconv.Result) error {
	entries := make([]export.Entry, 0, len(results))
	for _, res := range results {
		data, err := resultJSON(res)
		if err != nil {
			return fmt.Errorf("encode %s: %w", resultName(res), err)
		}
		entries = append(entries, export.Entry{Name: export.JSONName(resultName(res)), Data: data})
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	if err := export.WriteArchive(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Display a summary of a decoded file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().String("kind", "auto", "Input kind: auto, pnp, zak")
}

func runInfo(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	opts, err := decodeOptions(cmd)
	if err != nil {
		return err
	}
	res, err := decodeFile(args[0], kind, opts)
	if err != nil {
		return err
	}
	if res.Format == medconv.FormatPNP {
		printPnpInfo(res.PNP)
	} else {
		printZakInfo(res.ZAK)
	}
	return nil
}

func printPnpInfo(rec *model.PnpRecord) {
	fmt.Printf("PNP capture: %s\n", rec.File)
	fmt.Printf("  Patient:     %s (age %d, %d kg, %.2f m, %s)\n",
		rec.Demographics.Name, rec.Demographics.Age, rec.Demographics.Weight,
		rec.Demographics.Height, rec.Demographics.Sex)
	if rec.Btps.FoundInFile {
		fmt.Printf("  BTPS factor: %.4f (from file)\n", rec.Btps.Factor)
	} else {
		fmt.Printf("  BTPS factor: %.4f (fallback)\n", rec.Btps.Factor)
	}
	fmt.Printf("  Blocks:      ZhEL=%v MOD=%v MVL=%v\n",
		rec.Zhel != nil, rec.Mod != nil, rec.Mvl != nil)
	fmt.Printf("  FVC probes:  %d\n", len(rec.Probes))
}

func printZakInfo(rec *model.ZakRecord) {
	fmt.Printf("ZAK report: %s\n", rec.File)
	fmt.Printf("  Section:      %s\n", rec.Section)
	if rec.Area != nil {
		fmt.Printf("  Area:         %s\n", *rec.Area)
	}
	if rec.Patient.Name != nil {
		fmt.Printf("  Patient:      %s\n", *rec.Patient.Name)
	}
	fmt.Printf("  Measurements: %d\n", len(rec.Measurements))
	fmt.Printf("  Conclusion:   %d items\n", len(rec.Conclusion))
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("medconv version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	},
}
