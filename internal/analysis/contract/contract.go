// Package contract holds method contracts: summaries of how a call's
// result depends on its arguments.
package contract

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

// ArgCondition requires argument Arg to stand in relation Rel to a value
// of type Value.
type ArgCondition struct {
	Arg   int
	Rel   relation.Type
	Value dftype.DfType
}

func (c ArgCondition) String() string {
	return fmt.Sprintf("arg%d %s %s", c.Arg, c.Rel, c.Value)
}

// Contract states that when every condition holds the call returns a
// value of type Return, or fails when Fails is set.
type Contract struct {
	Conditions []ArgCondition
	Return     dftype.DfType
	Fails      bool
}

func (c Contract) String() string {
	conds := make([]string, len(c.Conditions))
	for i, cond := range c.Conditions {
		conds[i] = cond.String()
	}
	outcome := "fail"
	if !c.Fails {
		outcome = c.Return.String()
	}
	return strings.Join(conds, " && ") + " -> " + outcome
}

// Provider returns the contracts of a callable in the order they apply.
type Provider interface {
	Contracts(callable string) []Contract
}

// StaticProvider is a fixed table of contracts.
type StaticProvider map[string][]Contract

func (p StaticProvider) Contracts(callable string) []Contract {
	return p[callable]
}

// Chain returns the contracts of every provider in turn, earlier
// providers first.
type Chain []Provider

func (c Chain) Contracts(callable string) []Contract {
	var out []Contract
	for _, p := range c {
		if p != nil {
			out = append(out, p.Contracts(callable)...)
		}
	}
	return out
}

type cachingProvider struct {
	inner Provider
	cache *lru.Cache[string, []Contract]
}

// NewCachingProvider memoizes the size most recently used lookups of inner.
func NewCachingProvider(inner Provider, size int) (Provider, error) {
	cache, err := lru.New[string, []Contract](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating contract cache")
	}
	return &cachingProvider{inner: inner, cache: cache}, nil
}

func (p *cachingProvider) Contracts(callable string) []Contract {
	if c, ok := p.cache.Get(callable); ok {
		return c
	}
	c := p.inner.Contracts(callable)
	p.cache.Add(callable, c)
	return c
}

// Spec is the configuration file form of a contract.
type Spec struct {
	When    []ConditionSpec `yaml:"when,omitempty"`
	Returns string          `yaml:"returns,omitempty"`
	Fails   bool            `yaml:"fails,omitempty"`
}

// ConditionSpec is the configuration file form of an ArgCondition.
type ConditionSpec struct {
	Arg   int    `yaml:"arg"`
	Rel   string `yaml:"rel"`
	Value string `yaml:"value"`
}

// Compile converts a contract table read from configuration.
func Compile(specs map[string][]Spec) (StaticProvider, error) {
	out := make(StaticProvider, len(specs))
	for callable, list := range specs {
		for i, spec := range list {
			c, err := spec.Compile()
			if err != nil {
				return nil, errors.Wrapf(err, "contract %d of %s", i, callable)
			}
			out[callable] = append(out[callable], c)
		}
	}
	return out, nil
}

// Compile parses the relation and types of s.
func (s Spec) Compile() (Contract, error) {
	c := Contract{Fails: s.Fails, Return: dftype.Top}
	if !s.Fails {
		t, err := dftype.Parse(s.Returns)
		if err != nil {
			return Contract{}, errors.Wrap(err, "returns")
		}
		c.Return = t
	}
	for _, w := range s.When {
		rel, err := relation.Parse(w.Rel)
		if err != nil {
			return Contract{}, err
		}
		t, err := dftype.Parse(w.Value)
		if err != nil {
			return Contract{}, errors.Wrapf(err, "arg %d", w.Arg)
		}
		if w.Arg < 0 {
			return Contract{}, errors.Errorf("negative argument index %d", w.Arg)
		}
		c.Conditions = append(c.Conditions, ArgCondition{Arg: w.Arg, Rel: rel, Value: t})
	}
	return c, nil
}
