// Package assets declares the bronze -> silver asset graph and materializes it.
package assets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/partition"
	"github.com/dvloznov/youtube-trending/internal/pipeline"
)

var (
	ErrUnknownAsset   = errors.New("unknown asset")
	ErrDuplicateAsset = errors.New("duplicate asset")
	ErrCycle          = errors.New("asset graph has a cycle")
	ErrSourceAsset    = errors.New("source assets are produced outside this repository")
)

// Input is an upstream dependency of an asset. A partitioned upstream is read
// at the consumer's partition unless AllPartitions asks for the whole history.
type Input struct {
	Key           string
	AllPartitions bool
}

// ComputeFunc produces an asset from its loaded inputs, keyed by input key.
type ComputeFunc func(ctx context.Context, partitionKey string, inputs map[string]*dataset.Dataset) (*pipeline.Result, error)

// Asset is a node of the graph. Assets without Compute are sources.
type Asset struct {
	Key         string
	Description string
	Inputs      []Input
	Partitioned bool
	Label       string
	// Table is the warehouse table the asset is mirrored into, if any.
	Table   string
	Compute ComputeFunc
}

// IsSource reports whether the asset is read but never produced here.
func (a Asset) IsSource() bool { return a.Compute == nil }

// Graph is a validated, acyclic set of assets.
type Graph struct {
	assets     map[string]Asset
	order      []string
	Partitions partition.MonthlyPartitions
}

// NewGraph validates the assets and computes their topological order.
func NewGraph(partitions partition.MonthlyPartitions, assets ...Asset) (*Graph, error) {
	g := &Graph{assets: make(map[string]Asset, len(assets)), Partitions: partitions}
	for _, a := range assets {
		if _, dup := g.assets[a.Key]; dup {
			return nil, fmt.Errorf("NewGraph: %w: %s", ErrDuplicateAsset, a.Key)
		}
		g.assets[a.Key] = a
	}
	for _, a := range assets {
		for _, in := range a.Inputs {
			if _, ok := g.assets[in.Key]; !ok {
				return nil, fmt.Errorf("NewGraph: %s input: %w: %s", a.Key, ErrUnknownAsset, in.Key)
			}
		}
	}

	order, err := topoSort(g.assets)
	if err != nil {
		return nil, fmt.Errorf("NewGraph: %w", err)
	}
	g.order = order
	return g, nil
}

// topoSort is Kahn's algorithm with ties broken by key.
func topoSort(assets map[string]Asset) ([]string, error) {
	indegree := make(map[string]int, len(assets))
	downstream := make(map[string][]string)
	for key := range assets {
		indegree[key] = 0
	}
	for key, a := range assets {
		for _, in := range a.Inputs {
			indegree[key]++
			downstream[in.Key] = append(downstream[in.Key], key)
		}
	}

	var ready []string
	for key, n := range indegree {
		if n == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(assets))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)

		for _, d := range downstream[key] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
		sort.Strings(ready)
	}

	if len(order) != len(assets) {
		var stuck []string
		for key, n := range indegree {
			if n > 0 {
				stuck = append(stuck, key)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return order, nil
}

// Asset looks up an asset by key.
func (g *Graph) Asset(key string) (Asset, bool) {
	a, ok := g.assets[key]
	return a, ok
}

// TopoOrder returns every asset key, upstream before downstream.
func (g *Graph) TopoOrder() []string {
	return append([]string(nil), g.order...)
}

// Assets returns the assets in topological order.
func (g *Graph) Assets() []Asset {
	out := make([]Asset, len(g.order))
	for i, key := range g.order {
		out[i] = g.assets[key]
	}
	return out
}

// Downstream returns the keys that read key directly, sorted.
func (g *Graph) Downstream(key string) []string {
	var out []string
	for _, k := range g.order {
		for _, in := range g.assets[k].Inputs {
			if in.Key == key {
				out = append(out, k)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// inputPartition picks the partition to read an input at.
func (g *Graph) inputPartition(in Input, partitionKey string) string {
	up := g.assets[in.Key]
	if !up.Partitioned || in.AllPartitions {
		return ""
	}
	return partitionKey
}
