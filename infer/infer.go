// Package infer proposes boundary rules from an observed module graph.
// Four detectors look for structure the codebase already follows;
// proposals are marked inferred and carry a confidence so reviewers can
// filter before adopting them.
package infer

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/c360studio/archspec/graph"
	"github.com/c360studio/archspec/rules"
)

// DefaultMinConfidence filters proposals below this percentage.
const DefaultMinConfidence = 90.0

// gatewayStems are filenames conventionally used as a module's public
// surface.
var gatewayStems = map[string]struct{}{
	"index": {}, "__init__": {}, "mod": {}, "lib": {},
	"main": {}, "exports": {}, "public": {},
}

// Rules runs every detector over the graph and returns deduplicated
// proposals at or above minConfidence.
func Rules(g *graph.Graph, minConfidence float64) []rules.Invariant {
	if g == nil || !hasMultiFileModule(g.Modules) {
		return nil
	}

	var proposals []rules.Invariant
	proposals = append(proposals, detectDirectionality(g, minConfidence)...)
	proposals = append(proposals, detectGateway(g, minConfidence)...)
	proposals = append(proposals, detectSelfContainment(g, minConfidence)...)
	proposals = append(proposals, detectSelectiveDeps(g, minConfidence)...)
	return dedupe(proposals)
}

func hasMultiFileModule(modules []graph.Module) bool {
	for _, m := range modules {
		if m.FileCount >= 2 {
			return true
		}
	}
	return false
}

func moduleSlug(id string) string {
	return strings.ReplaceAll(strings.ReplaceAll(id, "/", "-"), `\`, "-")
}

func moduleIndex(modules []graph.Module) map[string]graph.Module {
	idx := make(map[string]graph.Module, len(modules))
	for _, m := range modules {
		idx[m.ID] = m
	}
	return idx
}

// detectDirectionality proposes reverse-import bans for one-way edges
// carrying at least two imports.
func detectDirectionality(g *graph.Graph, minConfidence float64) []rules.Invariant {
	mods := moduleIndex(g.Modules)
	edgeSet := map[[2]string]struct{}{}
	for _, e := range g.Edges {
		edgeSet[[2]string{e.From, e.To}] = struct{}{}
	}

	var proposals []rules.Invariant
	for _, e := range g.Edges {
		if len(e.Imports) < 2 {
			continue
		}
		from, fromOK := mods[e.From]
		to, toOK := mods[e.To]
		if !fromOK || !toOK || from.FileCount == 0 || to.FileCount == 0 {
			continue
		}
		if _, reverse := edgeSet[[2]string{e.To, e.From}]; reverse {
			continue
		}
		confidence := 100.0
		if confidence < minConfidence {
			continue
		}
		proposals = append(proposals, rules.Invariant{
			ID:               fmt.Sprintf("inferred-%s-no-import-%s", moduleSlug(e.To), moduleSlug(e.From)),
			Type:             rules.TypeBoundary,
			Severity:         rules.SeverityWarning,
			Description:      fmt.Sprintf("%s imports from %s but %s never imports from %s", e.From, e.To, e.To, e.From),
			SourceGlob:       e.To + "/**",
			ForbiddenImports: []string{e.From + "/**"},
			Inferred:         true,
			Confidence:       confidence,
		})
	}
	return proposals
}

// detectGateway proposes funneling imports through a module's entry file
// when at least 90% of incoming imports already target it.
func detectGateway(g *graph.Graph, minConfidence float64) []rules.Invariant {
	mods := moduleIndex(g.Modules)

	incoming := map[string][]graph.ImportRef{}
	for _, e := range g.Edges {
		incoming[e.To] = append(incoming[e.To], e.Imports...)
	}

	targets := make([]string, 0, len(incoming))
	for mod := range incoming {
		targets = append(targets, mod)
	}
	sort.Strings(targets)

	var proposals []rules.Invariant
	for _, modID := range targets {
		imports := incoming[modID]
		info, ok := mods[modID]
		if !ok || info.FileCount <= 1 || len(imports) < 2 {
			continue
		}

		// The import specifier's last component stands in for the target
		// file; resolved paths are not available here.
		leafCounts := map[string]int{}
		for _, imp := range imports {
			target := strings.ReplaceAll(imp.Target, `\`, "/")
			leafCounts[path.Base(target)]++
		}

		topLeaf, topCount := "", 0
		for leaf, n := range leafCounts {
			if n > topCount || (n == topCount && leaf < topLeaf) {
				topLeaf, topCount = leaf, n
			}
		}

		stem := topLeaf
		if dot := strings.LastIndex(stem, "."); dot > 0 {
			stem = stem[:dot]
		}
		if _, isGateway := gatewayStems[stem]; !isGateway {
			continue
		}

		pct := float64(topCount) / float64(len(imports)) * 100
		if pct < 90.0 {
			continue
		}
		confidence := roundTenth(pct)
		if confidence < minConfidence {
			continue
		}

		proposals = append(proposals, rules.Invariant{
			ID:               fmt.Sprintf("inferred-%s-gateway", moduleSlug(modID)),
			Type:             rules.TypeBoundary,
			Severity:         rules.SeverityWarning,
			Description:      fmt.Sprintf("%.0f%% of imports into %s go through %s; enforce the gateway", pct, modID, topLeaf),
			SourceGlob:       "**",
			ForbiddenImports: []string{modID + "/**"},
			AllowedImports:   []string{modID + "/" + topLeaf},
			Inferred:         true,
			Confidence:       confidence,
		})
	}
	return proposals
}

// detectSelfContainment proposes locking down modules that import from at
// most one other module, in projects with three or more modules.
func detectSelfContainment(g *graph.Graph, minConfidence float64) []rules.Invariant {
	if len(g.Modules) < 3 {
		return nil
	}
	outgoing := outgoingTargets(g.Edges)

	var proposals []rules.Invariant
	for _, mod := range g.Modules {
		if mod.FileCount <= 1 {
			continue
		}
		targets := outgoing[mod.ID]
		if len(targets) > 1 {
			continue
		}
		confidence := 100.0
		if confidence < minConfidence {
			continue
		}

		inv := rules.Invariant{
			ID:               fmt.Sprintf("inferred-%s-self-contained", moduleSlug(mod.ID)),
			Type:             rules.TypeBoundary,
			Severity:         rules.SeverityWarning,
			SourceGlob:       mod.ID + "/**",
			ForbiddenImports: []string{"**"},
			AllowedImports:   []string{mod.ID + "/**"},
			Inferred:         true,
			Confidence:       confidence,
		}
		if len(targets) == 0 {
			inv.Description = fmt.Sprintf("%s has no external imports; enforce self-containment", mod.ID)
		} else {
			allowed := targets[0]
			inv.Description = fmt.Sprintf("%s only imports from %s; enforce self-containment", mod.ID, allowed)
			inv.AllowedImports = append(inv.AllowedImports, allowed+"/**")
		}
		proposals = append(proposals, inv)
	}
	return proposals
}

// detectSelectiveDeps proposes allow-lists for modules importing from
// exactly two others. Zero and one are self-containment's territory.
func detectSelectiveDeps(g *graph.Graph, minConfidence float64) []rules.Invariant {
	if len(g.Modules) < 3 {
		return nil
	}
	outgoing := outgoingTargets(g.Edges)
	incoming := map[string]int{}
	for _, e := range g.Edges {
		incoming[e.To]++
	}

	var proposals []rules.Invariant
	for _, mod := range g.Modules {
		if mod.FileCount <= 1 {
			continue
		}
		targets := outgoing[mod.ID]
		if len(targets)+incoming[mod.ID] == 0 || len(targets) != 2 {
			continue
		}
		confidence := 100.0
		if confidence < minConfidence {
			continue
		}

		proposals = append(proposals, rules.Invariant{
			ID:       fmt.Sprintf("inferred-%s-selective-deps", moduleSlug(mod.ID)),
			Type:     rules.TypeBoundary,
			Severity: rules.SeverityWarning,
			Description: fmt.Sprintf("%s only imports from %s and %s; enforce selective dependencies",
				mod.ID, targets[0], targets[1]),
			SourceGlob:       mod.ID + "/**",
			ForbiddenImports: []string{"**"},
			AllowedImports:   []string{mod.ID + "/**", targets[0] + "/**", targets[1] + "/**"},
			Inferred:         true,
			Confidence:       confidence,
		})
	}
	return proposals
}

// outgoingTargets maps each module to its sorted distinct edge targets.
func outgoingTargets(edges []graph.Edge) map[string][]string {
	sets := map[string]map[string]struct{}{}
	for _, e := range edges {
		if sets[e.From] == nil {
			sets[e.From] = map[string]struct{}{}
		}
		sets[e.From][e.To] = struct{}{}
	}
	out := make(map[string][]string, len(sets))
	for from, set := range sets {
		targets := make([]string, 0, len(set))
		for to := range set {
			targets = append(targets, to)
		}
		sort.Strings(targets)
		out[from] = targets
	}
	return out
}

// dedupe drops later proposals sharing a scope and forbidden set with an
// earlier one.
func dedupe(proposals []rules.Invariant) []rules.Invariant {
	type key struct {
		scope     string
		forbidden string
	}
	seen := map[key]struct{}{}
	var unique []rules.Invariant
	for _, p := range proposals {
		forbidden := append([]string(nil), p.ForbiddenImports...)
		sort.Strings(forbidden)
		k := key{scope: p.SourceGlob, forbidden: strings.Join(forbidden, "\x00")}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
