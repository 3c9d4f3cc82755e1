// Package scan is the lazy query facade over the FIT decode pipeline.
// Constructing a plan and chaining operations performs no file access;
// only Collect runs header parse, record decode and columnar accumulation.
package scan

import (
	"errors"
	"io"
	"os"

	"example.com/fitscan/internal/common"
	"example.com/fitscan/internal/fit"
	"example.com/fitscan/internal/profile"
	"example.com/fitscan/internal/table"
)

// State tracks a plan through its lifecycle.
type State uint8

const (
	StatePlanned State = iota
	StateMaterializing
	StateMaterialized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePlanned:
		return "planned"
	case StateMaterializing:
		return "materializing"
	case StateMaterialized:
		return "materialized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrPlanConsumed reports a Collect on a plan that already materialized.
// Re-running the decode requires a fresh plan; no partial result is cached.
var ErrPlanConsumed = errors.New("plan already consumed; build a new scan to decode again")

// op is one deferred logical operation. Exactly one member is active.
type op struct {
	filter   *Predicate
	selected []string
	limit    int
	hasLimit bool
}

// Plan is the deferred description of one decode: file path, message-type
// selector, optional renames and the chained logical operations. Pure data
// until Collect.
type Plan struct {
	path        string
	messageType string
	mapping     map[string]string
	defaultMap  bool
	scale       fit.ScaleLookup
	verifyCRC   bool
	metrics     *common.Metrics

	ops      []op
	state    State
	err      error
	warnings []string
}

// Option adjusts plan construction.
type Option func(*Plan)

// WithMapping renames output columns post-decode. Keys are raw column names
// ("field_253"); entries for columns absent from the file are ignored.
func WithMapping(mapping map[string]string) Option {
	return func(p *Plan) { p.mapping = mapping }
}

// WithDefaultMapping applies the built-in profile field names before any
// custom mapping.
func WithDefaultMapping() Option {
	return func(p *Plan) { p.defaultMap = true }
}

// WithScale plugs in a scale/offset lookup, typically profile.Scale or an
// Overrides method.
func WithScale(scale fit.ScaleLookup) Option {
	return func(p *Plan) { p.scale = scale }
}

// WithFileCRC enables verification of the optional trailing file CRC.
// Mismatches surface as warnings, never as a failed collect.
func WithFileCRC() Option {
	return func(p *Plan) { p.verifyCRC = true }
}

// WithMetrics attaches a metrics recorder to the materialization.
func WithMetrics(m *common.Metrics) Option {
	return func(p *Plan) { p.metrics = m }
}

// New builds a plan for decoding one message type from the file at path.
// Performs no I/O and cannot fail; a bad path or selector is reported by
// Collect.
func New(path, messageType string, opts ...Option) *Plan {
	p := &Plan{path: path, messageType: messageType, state: StatePlanned}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Filter appends a row predicate to the plan.
func (p *Plan) Filter(pred Predicate) *Plan {
	p.ops = append(p.ops, op{filter: &pred})
	return p
}

// Select appends a column projection to the plan.
func (p *Plan) Select(columns ...string) *Plan {
	p.ops = append(p.ops, op{selected: columns})
	return p
}

// Limit appends a row cap to the plan.
func (p *Plan) Limit(n int) *Plan {
	p.ops = append(p.ops, op{limit: n, hasLimit: true})
	return p
}

// State returns the plan's lifecycle state.
func (p *Plan) State() State { return p.state }

// Err returns the failure recorded by a failed Collect.
func (p *Plan) Err() error { return p.err }

// Warnings returns soft decode findings from the last Collect.
func (p *Plan) Warnings() []string {
	out := make([]string, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// Collect materializes the plan: reads the file, runs the decode pipeline,
// accumulates the target message type into a table and applies the chained
// operations in order. A plan collects exactly once.
func (p *Plan) Collect() (*table.Table, error) {
	switch p.state {
	case StatePlanned:
	case StateFailed:
		return nil, p.err
	default:
		return nil, ErrPlanConsumed
	}
	p.state = StateMaterializing
	tbl, err := p.materialize()
	if err != nil {
		p.state = StateFailed
		p.err = err
		return nil, err
	}
	p.state = StateMaterialized
	return tbl, nil
}

func (p *Plan) materialize() (*table.Table, error) {
	globalNum, err := profile.ResolveMessageType(p.messageType)
	if err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.Start()
		defer p.metrics.Stop()
	}
	dec, err := fit.NewDecoder(buf, fit.Options{Scale: p.scale, VerifyFileCRC: p.verifyCRC})
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		dec.SetMetrics(p.metrics)
	}
	acc := table.NewAccumulator()
	for {
		msg, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if msg.GlobalNum == globalNum {
			acc.Append(msg)
		}
	}
	p.warnings = dec.Warnings()
	tbl := acc.Table()
	if p.metrics != nil {
		p.metrics.AddRows(int64(tbl.NumRows()))
	}

	if p.defaultMap {
		tbl.Rename(profile.ColumnMapping(globalNum))
	}
	tbl.Rename(p.mapping)

	for _, o := range p.ops {
		switch {
		case o.filter != nil:
			if err := applyFilter(tbl, *o.filter); err != nil {
				return nil, err
			}
		case o.selected != nil:
			if err := tbl.Select(o.selected); err != nil {
				return nil, err
			}
		case o.hasLimit:
			tbl.Limit(o.limit)
		}
	}
	return tbl, nil
}

// Read is the eager convenience: scan followed immediately by collect.
func Read(path, messageType string, opts ...Option) (*table.Table, error) {
	return New(path, messageType, opts...).Collect()
}

// MessageTypes lists the message types present in the file, in order of
// first appearance.
func MessageTypes(path string) ([]string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	msgs, _, err := fit.DecodeBytes(buf, fit.Options{})
	if err != nil {
		return nil, err
	}
	seen := make(map[uint16]bool)
	var names []string
	for _, m := range msgs {
		if !seen[m.GlobalNum] {
			seen[m.GlobalNum] = true
			names = append(names, profile.MessageName(m.GlobalNum))
		}
	}
	return names, nil
}
