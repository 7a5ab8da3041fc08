// Package linkplan propagates build facts to the enclosing build process.
//
// Pure propagation: nothing here is computed, it only records which
// artifacts the downstream linker needs and which directories later build
// stages must know about.
package linkplan

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Fact is a single named value exported to downstream build stages.
type Fact struct {
	Key   string
	Value string
}

// Plan records the link arguments and exported facts of one successful run.
type Plan struct {
	linkArgs []string
	facts    []Fact
	seen     map[string]bool
}

// New returns an empty Plan.
func New() *Plan {
	return &Plan{seen: make(map[string]bool)}
}

// AddLinkArg records a raw argument the downstream linker must receive,
// such as the secure-boundary veneer object.
func (p *Plan) AddLinkArg(arg string) {
	p.linkArgs = append(p.linkArgs, arg)
}

// SetFact records a named fact. Facts are write-once per run.
func (p *Plan) SetFact(key, value string) error {
	if p.seen[key] {
		return fmt.Errorf("fact %s already set", key)
	}
	p.seen[key] = true
	p.facts = append(p.facts, Fact{Key: key, Value: value})
	return nil
}

// LinkArgs returns the recorded linker arguments in insertion order.
func (p *Plan) LinkArgs() []string {
	return append([]string(nil), p.linkArgs...)
}

// Facts returns the recorded facts in insertion order.
func (p *Plan) Facts() []Fact {
	return append([]Fact(nil), p.facts...)
}

// WriteEnv renders the plan as key=value lines; link arguments are joined
// under TFM_LINK_ARGS. The output is stable across runs with equal input.
func (p *Plan) WriteEnv(w io.Writer) error {
	for _, f := range p.facts {
		if _, err := fmt.Fprintf(w, "%s=%s\n", f.Key, f.Value); err != nil {
			return err
		}
	}
	if len(p.linkArgs) > 0 {
		if _, err := fmt.Fprintf(w, "TFM_LINK_ARGS=%s\n", strings.Join(p.linkArgs, " ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile persists the plan at path for consumption by later build stages.
func (p *Plan) WriteFile(path string) error {
	var sb strings.Builder
	if err := p.WriteEnv(&sb); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
