package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"example.com/fitscan/internal/common"
	"example.com/fitscan/internal/export"
	"example.com/fitscan/internal/fit"
	"example.com/fitscan/internal/profile"
	"example.com/fitscan/internal/report"
	"example.com/fitscan/internal/scan"
	"example.com/fitscan/internal/table"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "decode":
		decodeCmd(os.Args[2:])
	case "info":
		infoCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`fitscan %s (built %s) <command> [options]

Commands:
  decode  --in <file.fit> --type <message type> [--out <file>] [--format csv|ndjson|parquet] [--filter "col>value"]... [--select col,col] [--limit n] [--map <overrides.yaml>] [--default-names] [--crc] [--metrics] [--progress]
  info    --in <file.fit>
  report  --in <file.fit> --type <message type> --out <summary.json> [--pdf <summary.pdf>] [--qr <hash.png>] [--map <overrides.yaml>] [--default-names]
`, version, buildDate)
}

// repeatedFlag collects every occurrence of a flag.
type repeatedFlag []string

func (f *repeatedFlag) String() string { return strings.Join(*f, ",") }

func (f *repeatedFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

var filterOps = []struct {
	token string
	build func(column string, v float64) scan.Predicate
	text  func(column, v string) (scan.Predicate, bool)
}{
	{">=", scan.Ge, nil},
	{"<=", scan.Le, nil},
	{"!=", scan.Ne, func(c, v string) (scan.Predicate, bool) { return scan.NeText(c, v), true }},
	{"==", scan.Eq, func(c, v string) (scan.Predicate, bool) { return scan.EqText(c, v), true }},
	{">", scan.Gt, nil},
	{"<", scan.Lt, nil},
	{"=", scan.Eq, func(c, v string) (scan.Predicate, bool) { return scan.EqText(c, v), true }},
}

// parseFilter turns an expression such as "field_3>100" or "sport=running"
// into a predicate. Values that parse as numbers compare numerically; other
// values compare as text and support only equality.
func parseFilter(expr string) (scan.Predicate, error) {
	for _, op := range filterOps {
		idx := strings.Index(expr, op.token)
		if idx <= 0 {
			continue
		}
		column := strings.TrimSpace(expr[:idx])
		raw := strings.TrimSpace(expr[idx+len(op.token):])
		if column == "" || raw == "" {
			return scan.Predicate{}, fmt.Errorf("malformed filter %q", expr)
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return op.build(column, v), nil
		}
		if op.text != nil {
			pred, _ := op.text(column, raw)
			return pred, nil
		}
		return scan.Predicate{}, fmt.Errorf("filter %q: ordering comparison needs a numeric value", expr)
	}
	return scan.Predicate{}, fmt.Errorf("filter %q: no comparison operator found", expr)
}

func loadScale(mapPath string) (fit.ScaleLookup, *profile.Overrides, error) {
	if strings.TrimSpace(mapPath) == "" {
		return profile.Scale, nil, nil
	}
	ov, err := profile.LoadOverrides(mapPath)
	if err != nil {
		return nil, nil, err
	}
	return ov.Scale, ov, nil
}

func decodeCmd(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	in := fs.String("in", "", "input .fit file")
	msgType := fs.String("type", "record", "message type (name, decimal or global_<n>)")
	out := fs.String("out", "", "output file (default: stdout)")
	format := fs.String("format", "csv", "output format: csv, ndjson or parquet")
	mapPath := fs.String("map", "", "YAML column rename and scale overrides")
	defaultNames := fs.Bool("default-names", false, "apply built-in field names")
	selectCols := fs.String("select", "", "comma-separated columns to keep")
	limit := fs.Int("limit", -1, "keep at most n rows")
	crc := fs.Bool("crc", false, "verify the trailing file checksum")
	metricsFlag := fs.Bool("metrics", false, "print decode throughput metrics")
	progressFlag := fs.Bool("progress", false, "display decode progress updates")
	var filters repeatedFlag
	fs.Var(&filters, "filter", "row filter expression, repeatable (\"col>value\")")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}

	scale, overrides, err := loadScale(*mapPath)
	if err != nil {
		fmt.Println("load overrides:", err)
		os.Exit(1)
	}

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		if info, err := os.Stat(*in); err == nil {
			metrics.SetTotalBytes(info.Size())
		}
	}

	opts := []scan.Option{scan.WithScale(scale)}
	if *defaultNames {
		opts = append(opts, scan.WithDefaultMapping())
	}
	if overrides != nil {
		globalNum, err := profile.ResolveMessageType(*msgType)
		if err != nil {
			fmt.Println("resolve type:", err)
			os.Exit(1)
		}
		opts = append(opts, scan.WithMapping(overrides.ColumnMapping(globalNum)))
	}
	if *crc {
		opts = append(opts, scan.WithFileCRC())
	}
	if metrics != nil {
		opts = append(opts, scan.WithMetrics(metrics))
	}

	plan := scan.New(*in, *msgType, opts...)
	for _, expr := range filters {
		pred, err := parseFilter(expr)
		if err != nil {
			fmt.Println("filter:", err)
			os.Exit(1)
		}
		plan = plan.Filter(pred)
	}
	if *selectCols != "" {
		var cols []string
		for _, c := range strings.Split(*selectCols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
		plan = plan.Select(cols...)
	}
	if *limit >= 0 {
		plan = plan.Limit(*limit)
	}

	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	tbl, err := plan.Collect()
	if stopProgress != nil {
		stopProgress()
	}
	if err != nil {
		fmt.Println("decode:", err)
		os.Exit(1)
	}
	for _, warning := range plan.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	if err := writeTable(tbl, *out, *format); err != nil {
		fmt.Println("write:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Decoded %d rows, %d columns (%s)\n", tbl.NumRows(), tbl.NumCols(), *msgType)

	if metrics != nil && *metricsFlag {
		snap := metrics.Snapshot()
		mbPerSec := snap.ThroughputBytesPerSecond() / 1_000_000
		fmt.Fprintf(os.Stderr, "Metrics: duration=%s records=%d definitions=%d rows=%d processed=%s throughput=%.2f MB/s\n",
			snap.Duration.Round(10*time.Millisecond),
			snap.Records,
			snap.Definitions,
			snap.Rows,
			common.FormatBytes(snap.Bytes),
			mbPerSec,
		)
	}
}

func writeTable(tbl *table.Table, out, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if out == "" {
		switch format {
		case "csv":
			return export.WriteCSV(tbl, os.Stdout)
		case "ndjson":
			return export.WriteNDJSON(tbl, os.Stdout)
		default:
			return fmt.Errorf("format %s requires --out", format)
		}
	}
	return export.WriteFile(tbl, out, format)
}

func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	in := fs.String("in", "", "input .fit file")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	buf, err := os.ReadFile(*in)
	if err != nil {
		fmt.Println("read:", err)
		os.Exit(1)
	}
	hdr, _, _, err := fit.ParseFileHeader(buf)
	if err != nil {
		fmt.Println("header:", err)
		os.Exit(1)
	}
	counts, err := fit.MessageCounts(buf, fit.Options{})
	if err != nil {
		fmt.Println("decode:", err)
		os.Exit(1)
	}

	fmt.Printf("File:             %s\n", *in)
	fmt.Printf("Protocol version: %d\n", hdr.ProtocolVersion)
	fmt.Printf("Profile version:  %d\n", hdr.ProfileVersion)
	fmt.Printf("Data size:        %s\n", common.FormatBytes(int64(hdr.DataSize)))
	fmt.Println()

	nums := make([]int, 0, len(counts))
	for num := range counts {
		nums = append(nums, int(num))
	}
	sort.Ints(nums)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MESSAGE TYPE\tGLOBAL\tCOUNT")
	for _, num := range nums {
		fmt.Fprintf(w, "%s\t%d\t%d\n", profile.MessageName(uint16(num)), num, counts[uint16(num)])
	}
	w.Flush()
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	in := fs.String("in", "", "input .fit file")
	msgType := fs.String("type", "record", "message type (name, decimal or global_<n>)")
	out := fs.String("out", "decode_summary.json", "summary JSON output")
	pdfOut := fs.String("pdf", "", "summary PDF output")
	qrOut := fs.String("qr", "", "file hash QR code PNG output")
	mapPath := fs.String("map", "", "YAML column rename and scale overrides")
	defaultNames := fs.Bool("default-names", false, "apply built-in field names")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	scale, overrides, err := loadScale(*mapPath)
	if err != nil {
		fmt.Println("load overrides:", err)
		os.Exit(1)
	}
	summary, err := buildSummary(*in, *msgType, scale, overrides, *defaultNames)
	if err != nil {
		fmt.Println("decode:", err)
		os.Exit(1)
	}
	if err := report.SaveJSON(summary, *out); err != nil {
		fmt.Println("write summary:", err)
		os.Exit(1)
	}
	fmt.Printf("Summary: %s (%d rows of %s)\n", *out, summary.Rows, summary.MessageType)
	if *pdfOut != "" {
		if err := report.SavePDF(summary, *pdfOut); err != nil {
			fmt.Println("write pdf:", err)
			os.Exit(1)
		}
		fmt.Printf("PDF: %s\n", *pdfOut)
	}
	if *qrOut != "" {
		png, err := report.FileHashToQR(summary.Sha256, 256)
		if err != nil {
			fmt.Println("qr:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*qrOut, png, 0644); err != nil {
			fmt.Println("write qr:", err)
			os.Exit(1)
		}
		fmt.Printf("QR: %s\n", *qrOut)
	}
}

func buildSummary(path, msgType string, scale fit.ScaleLookup, overrides *profile.Overrides, defaultNames bool) (report.Summary, error) {
	globalNum, err := profile.ResolveMessageType(msgType)
	if err != nil {
		return report.Summary{}, err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return report.Summary{}, err
	}
	dec, err := fit.NewDecoder(buf, fit.Options{Scale: scale, VerifyFileCRC: true})
	if err != nil {
		return report.Summary{}, err
	}
	counts := make(map[uint16]int)
	acc := table.NewAccumulator()
	for {
		msg, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return report.Summary{}, err
		}
		counts[msg.GlobalNum]++
		if msg.GlobalNum == globalNum {
			acc.Append(msg)
		}
	}
	tbl := acc.Table()
	if defaultNames {
		if overrides != nil {
			tbl.Rename(overrides.ColumnMapping(globalNum))
		} else {
			tbl.Rename(profile.ColumnMapping(globalNum))
		}
	}
	return report.Build(path, msgType, dec.Header(), tbl, counts, dec.Warnings())
}
