package suite

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	cyberphone "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/dannyhammer/autoperft/bisect"
	"github.com/dannyhammer/autoperft/perfterr"
)

// ReportSchemaVersion identifies the report artifact layout.
const ReportSchemaVersion = "autoperft.report.v1"

// Report is the machine-consumed run artifact.
type Report struct {
	SchemaVersion  string        `json:"schema_version"`
	Tool           string        `json:"tool"`
	GeneratedAtUTC string        `json:"generated_at_utc"`
	Suite          string        `json:"suite"`
	SubjectCommand []string      `json:"subject_command"`
	Cases          []CaseReport  `json:"cases"`
	Summary        SummaryReport `json:"summary"`
}

// CaseReport is one case's outcome in the report.
type CaseReport struct {
	Index     int            `json:"index"`
	FEN       string         `json:"fen"`
	Depth     int            `json:"depth"`
	Verdict   string         `json:"verdict"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Failure   *FailureReport `json:"failure,omitempty"`
	Error     *ErrorReport   `json:"error,omitempty"`
}

// FailureReport locates one isolated divergence. Signature is the hex
// SHA-256 of the RFC 8785 canonicalization of the failure identity, so two
// runs that isolate the same divergence produce byte-identical signatures
// for deduplication across CI.
type FailureReport struct {
	Path         []string `json:"path"`
	Depth        int      `json:"depth"`
	Kind         string   `json:"kind"`
	Move         string   `json:"move,omitempty"`
	OracleCount  uint64   `json:"oracle_count"`
	SubjectCount uint64   `json:"subject_count"`
	Signature    string   `json:"signature"`
}

// ErrorReport describes a case that could not be compared.
type ErrorReport struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// SummaryReport aggregates verdicts in the report.
type SummaryReport struct {
	Cases   int `json:"cases"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// BuildReport renders run results as a report. suiteName records where the
// cases came from. A nil now uses the wall clock.
func BuildReport(suiteName string, subjectCommand []string, results []CaseResult, summary Summary, now func() time.Time) (*Report, error) {
	if now == nil {
		now = time.Now
	}
	report := &Report{
		SchemaVersion:  ReportSchemaVersion,
		Tool:           "autoperft",
		GeneratedAtUTC: now().UTC().Format(time.RFC3339Nano),
		Suite:          suiteName,
		SubjectCommand: append([]string(nil), subjectCommand...),
		Cases:          make([]CaseReport, 0, len(results)),
		Summary: SummaryReport{
			Cases:   summary.Cases,
			Passed:  summary.Passed,
			Failed:  summary.Failed,
			Errored: summary.Errored,
		},
	}
	for _, res := range results {
		cr := CaseReport{
			Index:     res.Index,
			FEN:       res.Case.FEN,
			Depth:     res.Case.Depth,
			Verdict:   string(res.Verdict),
			ElapsedMS: res.Elapsed.Milliseconds(),
		}
		switch res.Verdict {
		case VerdictFail:
			div := res.Bisection.Divergence
			if div == nil {
				return nil, fmt.Errorf("case %d failed without divergence detail", res.Index)
			}
			failure := &FailureReport{
				Path:         bisect.PathStrings(res.Bisection.Path),
				Depth:        res.Bisection.Depth,
				Kind:         string(div.Kind),
				Move:         string(div.Move),
				OracleCount:  div.OracleCount,
				SubjectCount: div.SubjectCount,
			}
			if failure.Path == nil {
				failure.Path = []string{}
			}
			sig, err := failureSignature(res.Case.FEN, failure)
			if err != nil {
				return nil, fmt.Errorf("case %d signature: %w", res.Index, err)
			}
			failure.Signature = sig
			cr.Failure = failure
		case VerdictError:
			if res.Err == nil {
				return nil, fmt.Errorf("case %d errored without error detail", res.Index)
			}
			cr.Error = &ErrorReport{
				Class:   string(perfterr.ClassOf(res.Err)),
				Message: res.Err.Error(),
			}
		}
		report.Cases = append(report.Cases, cr)
	}
	return report, nil
}

// failureSignature canonicalizes the failure identity with RFC 8785 and
// hashes it. Node counts are embedded as decimal strings: JCS renders
// numbers as IEEE doubles, which would fold counts above 2^53.
func failureSignature(fen string, f *FailureReport) (string, error) {
	payload := map[string]any{
		"root_fen":      fen,
		"path":          f.Path,
		"depth":         f.Depth,
		"kind":          f.Kind,
		"move":          f.Move,
		"oracle_count":  strconv.FormatUint(f.OracleCount, 10),
		"subject_count": strconv.FormatUint(f.SubjectCount, 10),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal failure identity: %w", err)
	}
	canonical, err := cyberphone.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize failure identity: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// WriteReport writes the report to path atomically: the bytes land in a
// temp file in the target directory and are renamed over path, so a crashed
// run never leaves a truncated artifact behind. Atomicity holds on local
// filesystems when temp and target share a mount.
func WriteReport(path string, report *Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".autoperft-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp report: %w", err)
	}
	success = true
	return nil
}

// LoadReport reads a report artifact from disk.
//
//nolint:gosec // report path is explicit operator input.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// ValidateReport checks structural consistency and recomputes every failure
// signature, so a tampered or hand-edited artifact is rejected.
func ValidateReport(report *Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if report.SchemaVersion != ReportSchemaVersion {
		return fmt.Errorf("unsupported schema_version %q", report.SchemaVersion)
	}
	if report.Tool != "autoperft" {
		return fmt.Errorf("unexpected tool %q", report.Tool)
	}
	if report.GeneratedAtUTC == "" {
		return fmt.Errorf("missing generated_at_utc")
	}

	var summary SummaryReport
	summary.Cases = len(report.Cases)
	for i, cr := range report.Cases {
		switch Verdict(cr.Verdict) {
		case VerdictPass:
			summary.Passed++
			if cr.Failure != nil || cr.Error != nil {
				return fmt.Errorf("case %d: pass carries failure or error detail", i)
			}
		case VerdictFail:
			summary.Failed++
			if cr.Failure == nil {
				return fmt.Errorf("case %d: fail without failure detail", i)
			}
			want, err := failureSignature(cr.FEN, cr.Failure)
			if err != nil {
				return fmt.Errorf("case %d: %w", i, err)
			}
			if cr.Failure.Signature != want {
				return fmt.Errorf("case %d: signature mismatch", i)
			}
		case VerdictError:
			summary.Errored++
			if cr.Error == nil {
				return fmt.Errorf("case %d: error without error detail", i)
			}
		default:
			return fmt.Errorf("case %d: unknown verdict %q", i, cr.Verdict)
		}
	}
	if report.Summary != summary {
		return fmt.Errorf("summary does not match cases: recorded %+v, derived %+v", report.Summary, summary)
	}
	return nil
}
