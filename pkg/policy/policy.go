package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

// RegenerateQuery is evaluated for every regeneration candidate
const RegenerateQuery = "data.regenerate.allow"

// Policy decides which placeholder entries may be regenerated. A Policy
// without query allows everything.
type Policy struct {
	query *rego.PreparedEvalQuery
}

type printHook struct {
	ctx context.Context
}

func (h *printHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// Load reads every *.rego file in dir. An empty dir string or a directory
// without policy files yields an allow-all Policy.
func Load(ctx context.Context, dir string) (*Policy, error) {
	if dir == "" {
		return &Policy{}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", dir))
	}
	if len(files) == 0 {
		logging.From(ctx).Warn("no policy file found, all candidates are allowed", "dir", dir)
		return &Policy{}, nil
	}

	options := []func(*rego.Rego){
		rego.Query(RegenerateQuery),
		rego.EnablePrintStatements(true),
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query", goerr.V("query", RegenerateQuery))
	}

	return &Policy{query: &prepared}, nil
}

// Input is the document the policy sees as `input`
type Input struct {
	Entry map[string]any `json:"entry"`
	Now   int64          `json:"now"`
}

func newInput(entry *model.MemoryEntry, now int64) (*Input, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode entry for policy", goerr.V("id", entry.ID))
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode entry for policy", goerr.V("id", entry.ID))
	}
	return &Input{Entry: doc, Now: now}, nil
}

// Allow evaluates the policy for entry. now is milliseconds since epoch.
// An undefined result denies.
func (p *Policy) Allow(ctx context.Context, entry *model.MemoryEntry, now int64) (bool, error) {
	if p == nil || p.query == nil {
		return true, nil
	}

	input, err := newInput(entry, now)
	if err != nil {
		return false, err
	}

	rs, err := p.query.Eval(ctx,
		rego.EvalInput(input),
		rego.EvalPrintHook(&printHook{ctx: ctx}),
	)
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate policy", goerr.V("id", entry.ID))
	}

	return rs.Allowed(), nil
}
