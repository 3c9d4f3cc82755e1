// Package server implements the fitd HTTP service: upload FIT files, decode
// message types to tables, stream rows, and download generated artifacts.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/fitscan/internal/export"
	"example.com/fitscan/internal/fit"
	"example.com/fitscan/internal/profile"
	"example.com/fitscan/internal/report"
	"example.com/fitscan/internal/scan"
	"example.com/fitscan/internal/table"
)

// Server coordinates HTTP handlers and manages temporary artifacts produced
// by decode requests.
type Server struct {
	artifacts  *ArtifactStore
	workDir    string
	uploadsDir string
	overrides  *profile.Overrides
	// decodeSem bounds how many decode passes run at once; its capacity is
	// Options.Concurrency.
	decodeSem chan struct{}
}

// Artifact represents a file generated or stored by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "fitd-")
	if err != nil {
		return nil, err
	}
	uploadsDir := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	overrides, err := loadServerOverrides(opts.OverridesPath)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	s := &Server{
		artifacts:  &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:    workDir,
		uploadsDir: uploadsDir,
		overrides:  overrides,
		decodeSem:  make(chan struct{}, concurrency),
	}
	return s, nil
}

// acquireDecode takes a decode slot, blocking while all slots are busy, and
// returns the function that releases it.
func (s *Server) acquireDecode() func() {
	s.decodeSem <- struct{}{}
	return func() { <-s.decodeSem }
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	id := randomID()
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

// resolvePath accepts either an artifact ID from a prior upload or a
// filesystem path.
func (s *Server) resolvePath(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty input path")
	}
	if art, ok := s.getArtifact(token); ok {
		return art.Path, nil
	}
	abs := token
	if !filepath.IsAbs(token) {
		abs = filepath.Clean(token)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

type filterSpec struct {
	Column string   `json:"column"`
	Op     string   `json:"op"`
	Number *float64 `json:"number,omitempty"`
	Text   *string  `json:"text,omitempty"`
}

type decodeRequest struct {
	Input        string            `json:"input"`
	MessageType  string            `json:"messageType"`
	Filters      []filterSpec      `json:"filters,omitempty"`
	Select       []string          `json:"select,omitempty"`
	Limit        *int              `json:"limit,omitempty"`
	Format       string            `json:"format,omitempty"`
	DefaultNames bool              `json:"defaultNames"`
	Mapping      map[string]string `json:"mapping,omitempty"`
	VerifyCRC    bool              `json:"verifyCrc"`
}

func parsePredicate(spec filterSpec) (scan.Predicate, error) {
	column := strings.TrimSpace(spec.Column)
	if column == "" {
		return scan.Predicate{}, errors.New("filter missing column")
	}
	op := strings.ToLower(strings.TrimSpace(spec.Op))
	if spec.Text != nil {
		switch op {
		case "eq", "==":
			return scan.EqText(column, *spec.Text), nil
		case "ne", "!=":
			return scan.NeText(column, *spec.Text), nil
		default:
			return scan.Predicate{}, fmt.Errorf("text filter supports eq/ne, got %q", spec.Op)
		}
	}
	if spec.Number == nil {
		return scan.Predicate{}, fmt.Errorf("filter on %s missing number or text value", column)
	}
	v := *spec.Number
	switch op {
	case "eq", "==":
		return scan.Eq(column, v), nil
	case "ne", "!=":
		return scan.Ne(column, v), nil
	case "lt", "<":
		return scan.Lt(column, v), nil
	case "le", "<=":
		return scan.Le(column, v), nil
	case "gt", ">":
		return scan.Gt(column, v), nil
	case "ge", ">=":
		return scan.Ge(column, v), nil
	default:
		return scan.Predicate{}, fmt.Errorf("unknown filter op %q", spec.Op)
	}
}

func (s *Server) scaleLookup() fit.ScaleLookup {
	if s.overrides != nil {
		return s.overrides.Scale
	}
	return profile.Scale
}

func (s *Server) buildPlan(req decodeRequest, inputPath string) (*scan.Plan, error) {
	opts := []scan.Option{scan.WithScale(s.scaleLookup())}
	if req.DefaultNames {
		opts = append(opts, scan.WithDefaultMapping())
	}
	if len(req.Mapping) > 0 {
		opts = append(opts, scan.WithMapping(req.Mapping))
	}
	if req.VerifyCRC {
		opts = append(opts, scan.WithFileCRC())
	}
	plan := scan.New(inputPath, req.MessageType, opts...)
	for _, spec := range req.Filters {
		pred, err := parsePredicate(spec)
		if err != nil {
			return nil, err
		}
		plan = plan.Filter(pred)
	}
	if len(req.Select) > 0 {
		plan = plan.Select(req.Select...)
	}
	if req.Limit != nil {
		plan = plan.Limit(*req.Limit)
	}
	return plan, nil
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stream := r.URL.Query().Get("stream") == "true"
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.MessageType) == "" {
		http.Error(w, "messageType required", http.StatusBadRequest)
		return
	}
	inputPath, err := s.resolvePath(req.Input)
	if err != nil {
		http.Error(w, fmt.Sprintf("input resolve: %v", err), http.StatusBadRequest)
		return
	}
	plan, err := s.buildPlan(req, inputPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("build plan: %v", err), http.StatusBadRequest)
		return
	}
	release := s.acquireDecode()
	defer release()

	if stream {
		w.Header().Set("Content-Type", "application/x-ndjson")
		out := newRowStream(w)
		tbl, err := plan.Collect()
		if err != nil {
			_ = out.object(map[string]any{"type": "error", "error": err.Error()})
			return
		}
		for i := 0; i < tbl.NumRows(); i++ {
			if err := out.row(tbl, i); err != nil {
				return
			}
		}
		_ = out.object(map[string]any{
			"type":     "summary",
			"rows":     tbl.NumRows(),
			"columns":  tbl.ColumnNames(),
			"warnings": plan.Warnings(),
		})
		return
	}

	tbl, err := plan.Collect()
	if err != nil {
		http.Error(w, fmt.Sprintf("decode: %v", err), http.StatusUnprocessableEntity)
		return
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "csv"
	}
	outPath, err := s.tempPath(fmt.Sprintf("decode-*.%s", format))
	if err != nil {
		http.Error(w, fmt.Sprintf("output temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := export.WriteFile(tbl, outPath, format); err != nil {
		http.Error(w, fmt.Sprintf("write %s: %v", format, err), http.StatusBadRequest)
		return
	}
	art, err := s.addArtifact(outPath, fmt.Sprintf("decoded.%s", format), "", "decode")
	if err != nil {
		http.Error(w, fmt.Sprintf("register output: %v", err), http.StatusInternalServerError)
		return
	}
	resp := struct {
		Rows     int         `json:"rows"`
		Columns  []string    `json:"columns"`
		Warnings []string    `json:"warnings,omitempty"`
		Artifact ArtifactRef `json:"artifact"`
	}{
		Rows:     tbl.NumRows(),
		Columns:  tbl.ColumnNames(),
		Warnings: plan.Warnings(),
		Artifact: toRef(art),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	inputPath, err := s.resolvePath(req.Input)
	if err != nil {
		http.Error(w, fmt.Sprintf("input resolve: %v", err), http.StatusBadRequest)
		return
	}
	release := s.acquireDecode()
	defer release()
	types, err := scan.MessageTypes(inputPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("read types: %v", err), http.StatusUnprocessableEntity)
		return
	}
	resp := struct {
		Types []string `json:"types"`
	}{Types: types}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.MessageType) == "" {
		http.Error(w, "messageType required", http.StatusBadRequest)
		return
	}
	inputPath, err := s.resolvePath(req.Input)
	if err != nil {
		http.Error(w, fmt.Sprintf("input resolve: %v", err), http.StatusBadRequest)
		return
	}
	release := s.acquireDecode()
	defer release()
	summary, err := s.decodeSummary(req, inputPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("decode: %v", err), http.StatusUnprocessableEntity)
		return
	}
	jsonPath, err := s.tempPath("summary-*.json")
	if err != nil {
		http.Error(w, fmt.Sprintf("summary temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := report.SaveJSON(summary, jsonPath); err != nil {
		http.Error(w, fmt.Sprintf("write summary: %v", err), http.StatusInternalServerError)
		return
	}
	pdfPath, err := s.tempPath("summary-*.pdf")
	if err != nil {
		http.Error(w, fmt.Sprintf("summary pdf temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := report.SavePDF(summary, pdfPath); err != nil {
		http.Error(w, fmt.Sprintf("write summary pdf: %v", err), http.StatusInternalServerError)
		return
	}
	jsonArt, err := s.addArtifact(jsonPath, "decode_summary.json", "application/json", "summary")
	if err != nil {
		http.Error(w, fmt.Sprintf("register summary: %v", err), http.StatusInternalServerError)
		return
	}
	pdfArt, err := s.addArtifact(pdfPath, "decode_summary.pdf", "application/pdf", "summary")
	if err != nil {
		http.Error(w, fmt.Sprintf("register summary pdf: %v", err), http.StatusInternalServerError)
		return
	}
	resp := struct {
		Summary   report.Summary `json:"summary"`
		Artifacts []ArtifactRef  `json:"artifacts"`
	}{
		Summary:   summary,
		Artifacts: []ArtifactRef{toRef(jsonArt), toRef(pdfArt)},
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeSummary runs one full decode pass and assembles the summary
// artifact: header fields, per-type record counts and the column shape of
// the requested message type.
func (s *Server) decodeSummary(req decodeRequest, inputPath string) (report.Summary, error) {
	globalNum, err := profile.ResolveMessageType(req.MessageType)
	if err != nil {
		return report.Summary{}, err
	}
	buf, err := os.ReadFile(inputPath)
	if err != nil {
		return report.Summary{}, err
	}
	dec, err := fit.NewDecoder(buf, fit.Options{Scale: s.scaleLookup(), VerifyFileCRC: req.VerifyCRC})
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
	if req.DefaultNames {
		if s.overrides != nil {
			tbl.Rename(s.overrides.ColumnMapping(globalNum))
		} else {
			tbl.Rename(profile.ColumnMapping(globalNum))
		}
	}
	tbl.Rename(req.Mapping)
	return report.Build(inputPath, req.MessageType, dec.Header(), tbl, counts, dec.Warnings())
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("stat artifact: %v", err), http.StatusInternalServerError)
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	disposition := fmt.Sprintf("attachment; filename=\"%s\"", art.Name)
	w.Header().Set("Content-Disposition", disposition)
	io.Copy(w, f)
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func guessContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".ndjson":
		return "application/x-ndjson"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".fit", ".parquet":
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}

func (s *Server) handleArtifactList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.listArtifacts())
}

func (s *Server) listArtifacts() []ArtifactRef {
	s.artifacts.mu.RLock()
	refs := make([]ArtifactRef, 0, len(s.artifacts.entries))
	for _, art := range s.artifacts.entries {
		refs = append(refs, toRef(art))
	}
	s.artifacts.mu.RUnlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}
