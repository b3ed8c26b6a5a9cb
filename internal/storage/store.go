package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/primesync/internal/config"
	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/experiment"
	"github.com/san-kum/primesync/internal/metrics"
	"github.com/san-kum/primesync/internal/optim"
)

const (
	KindRun    = "run"
	KindSearch = "search"
	KindSweep  = "sweep"
	KindScan   = "scan"

	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	statesFile   = "states.csv"
	curveFile    = "curve.csv"
	scanFile     = "scan.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Target      int                `json:"target"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Kappa       float64            `json:"kappa"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Frequencies string             `json:"frequencies"`
	Isolation   string             `json:"isolation"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (s *Store) newRun(kind string, cfg *config.Config) (RunMetadata, string, error) {
	id := kind + "_" + strings.SplitN(uuid.NewString(), "-", 2)[0]
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return RunMetadata{}, "", err
	}
	if err := config.Save(filepath.Join(dir, configFile), cfg); err != nil {
		return RunMetadata{}, "", err
	}
	meta := RunMetadata{
		ID:          id,
		Kind:        kind,
		Target:      cfg.Target,
		Timestamp:   time.Now(),
		Seed:        cfg.Seed,
		Kappa:       cfg.Kappa,
		Dt:          cfg.Sim.Dt,
		Duration:    cfg.Sim.Duration,
		Integrator:  cfg.Integrator,
		Frequencies: cfg.Frequencies,
		Isolation:   cfg.Isolation,
		Metrics:     make(map[string]float64),
	}
	return meta, dir, nil
}

func writeMetadata(dir string, meta RunMetadata) error {
	f, err := os.Create(filepath.Join(dir, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Sync()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// SaveRun stores a single simulation: metadata, config and the recorded
// trajectory as time, r, θ_0 … θ_{M-1}.
func (s *Store) SaveRun(cfg *config.Config, result *dynamo.Result) (string, error) {
	meta, dir, err := s.newRun(KindRun, cfg)
	if err != nil {
		return "", err
	}
	for k, v := range result.Metrics {
		meta.Metrics[k] = v
	}
	r, _ := metrics.OrderParameter(result.Final)
	meta.Metrics["r_final"] = r
	meta.Metrics["steps"] = float64(result.StepsTaken)
	if err := writeMetadata(dir, meta); err != nil {
		return "", err
	}

	states, times := result.States, result.Times
	if len(states) == 0 {
		states, times = []dynamo.State{result.Final}, []float64{result.EndTime}
	}
	header := []string{"time", "r"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("theta%d", i))
	}
	rows := make([][]string, len(states))
	for i, x := range states {
		r, _ := metrics.OrderParameter(x)
		row := make([]string, 0, len(x)+2)
		row = append(row, ftoa(times[i]), ftoa(r))
		for _, v := range x {
			row = append(row, ftoa(v))
		}
		rows[i] = row
	}
	return meta.ID, writeCSV(filepath.Join(dir, statesFile), header, rows)
}

// SaveSearch stores a bisection result and its probes as a (κ, r) curve.
func (s *Store) SaveSearch(cfg *config.Config, res *optim.Result) (string, error) {
	meta, dir, err := s.newRun(KindSearch, cfg)
	if err != nil {
		return "", err
	}
	meta.Kappa = res.Kappa
	meta.Metrics["kappa_c"] = res.Kappa
	meta.Metrics["lo"] = res.Lo
	meta.Metrics["hi"] = res.Hi
	meta.Metrics["iterations"] = float64(res.Iterations)
	if res.Converged {
		meta.Metrics["converged"] = 1
	} else {
		meta.Metrics["converged"] = 0
	}
	if err := writeMetadata(dir, meta); err != nil {
		return "", err
	}
	return meta.ID, writeCurve(dir, res.Probes)
}

// SaveSweep stores a κ sweep.
func (s *Store) SaveSweep(cfg *config.Config, samples []optim.Sample) (string, error) {
	meta, dir, err := s.newRun(KindSweep, cfg)
	if err != nil {
		return "", err
	}
	meta.Metrics["points"] = float64(len(samples))
	if k, ok := optim.FirstSynced(samples, cfg.Search.Threshold); ok {
		meta.Metrics["first_synced"] = k
	}
	if err := writeMetadata(dir, meta); err != nil {
		return "", err
	}
	return meta.ID, writeCurve(dir, samples)
}

func writeCurve(dir string, samples []optim.Sample) error {
	rows := make([][]string, len(samples))
	for i, smp := range samples {
		rows[i] = []string{ftoa(smp.Kappa), ftoa(smp.R)}
	}
	return writeCSV(filepath.Join(dir, curveFile), []string{"kappa", "r"}, rows)
}

// SaveScan stores a target sweep as N, oscillators, edges, Γ, κ_c, spectral.
func (s *Store) SaveScan(cfg *config.Config, rows []experiment.TargetResult) (string, error) {
	meta, dir, err := s.newRun(KindScan, cfg)
	if err != nil {
		return "", err
	}
	failed := 0
	out := make([][]string, len(rows))
	for i, r := range rows {
		if r.Err != "" {
			failed++
		}
		out[i] = []string{
			strconv.Itoa(r.N), strconv.Itoa(r.Oscillators), strconv.Itoa(r.Edges),
			ftoa(r.Gamma), ftoa(r.Kappa), ftoa(r.Spectral), r.Err,
		}
	}
	meta.Metrics["targets"] = float64(len(rows))
	meta.Metrics["failed"] = float64(failed)
	if err := writeMetadata(dir, meta); err != nil {
		return "", err
	}
	header := []string{"n", "oscillators", "edges", "gamma", "kappa_c", "spectral", "error"}
	return meta.ID, writeCSV(filepath.Join(dir, scanFile), header, out)
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig returns the configuration a run was produced with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadStates returns the recorded times, order parameters and phases of a
// run.
func (s *Store) LoadStates(runID string) (times, rs []float64, states [][]float64, err error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, nil, err
	}
	for _, rec := range records {
		vals, err := parseFloats(rec)
		if err != nil || len(vals) < 2 {
			continue
		}
		times = append(times, vals[0])
		rs = append(rs, vals[1])
		states = append(states, vals[2:])
	}
	return times, rs, states, nil
}

// LoadCurve returns the (κ, r) rows of a search or sweep.
func (s *Store) LoadCurve(runID string) (kappas, rs []float64, err error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, curveFile))
	if err != nil {
		return nil, nil, err
	}
	for _, rec := range records {
		vals, err := parseFloats(rec)
		if err != nil || len(vals) != 2 {
			continue
		}
		kappas = append(kappas, vals[0])
		rs = append(rs, vals[1])
	}
	return kappas, rs, nil
}

// LoadScan returns the rows of a target sweep.
func (s *Store) LoadScan(runID string) ([]experiment.TargetResult, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, scanFile))
	if err != nil {
		return nil, err
	}
	rows := make([]experiment.TargetResult, 0, len(records))
	for _, rec := range records {
		if len(rec) != 7 {
			continue
		}
		vals, err := parseFloats(rec[:6])
		if err != nil {
			continue
		}
		rows = append(rows, experiment.TargetResult{
			N: int(vals[0]), Oscillators: int(vals[1]), Edges: int(vals[2]),
			Gamma: vals[3], Kappa: vals[4], Spectral: vals[5], Err: rec[6],
		})
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func parseFloats(rec []string) ([]float64, error) {
	out := make([]float64, len(rec))
	for i, v := range rec {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// WriteJSON prints metadata as indented JSON.
func WriteJSON(w io.Writer, meta *RunMetadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
