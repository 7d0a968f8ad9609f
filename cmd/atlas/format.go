package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"codeatlas/internal/blueprint"
	"codeatlas/internal/deptree"
	"codeatlas/internal/errors"
	"codeatlas/internal/query"
	"codeatlas/internal/storage"
	"codeatlas/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON    OutputFormat = "json"
	FormatHuman   OutputFormat = "human"
	FormatMermaid OutputFormat = "mermaid" // flow only
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatMermaid:
		if f, ok := resp.(*query.ScenarioFlowResponse); ok {
			return f.Mermaid, nil
		}
		return "", fmt.Errorf("mermaid output is only available for flow")
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *query.MetaResponse:
		return formatMetaHuman(v), nil
	case *query.EntryPointsResponse:
		return formatEntryPointsHuman(v), nil
	case *query.DependencyTreeResponse:
		return formatTreeHuman(v), nil
	case *query.ArchitectureResponse:
		return formatArchHuman(v), nil
	case *query.StatisticsResponse:
		return formatStatsHuman(v), nil
	case *query.ReferencesResponse:
		return formatRefsHuman(v), nil
	case *query.CallGraphResponse:
		return formatCallGraphHuman(v), nil
	case *query.ScenarioFlowResponse:
		return formatFlowHuman(v), nil
	case *GenerateResponseCLI:
		return formatGenerateHuman(v), nil
	case *SnapshotsResponseCLI:
		return formatSnapshotsHuman(v), nil
	case *storage.Snapshot:
		return formatSnapshotHuman(v), nil
	case *PruneResponseCLI:
		return fmt.Sprintf("Pruned %d snapshot(s), kept the newest %d\n", v.Deleted, v.Kept), nil
	case *InitResponseCLI:
		return formatInitHuman(v), nil
	case *ConfigShowResponse:
		return formatConfigHuman(v), nil
	case *version.Build:
		return version.Full() + "\n", nil
	default:
		out, err := formatJSON(resp)
		if err != nil {
			return "", err
		}
		return "(Human format not available, showing JSON)\n" + out, nil
	}
}

func header(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
}

func writeProvenance(b *strings.Builder, p *query.Provenance) {
	if p == nil {
		return
	}
	id := p.GenerationID
	if len(id) > 12 {
		id = id[:12]
	}
	b.WriteString(fmt.Sprintf("\nBlueprint %s (generated %s, format %s, %dms)\n",
		id, p.GeneratedAt, p.FormatVersion, p.QueryDurationMs))
}

func writeSuggestions(b *strings.Builder, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	b.WriteString("Did you mean:\n")
	for _, s := range suggestions {
		b.WriteString(fmt.Sprintf("  - %s\n", s))
	}
}

func formatMetaHuman(resp *query.MetaResponse) string {
	var b strings.Builder
	header(&b, fmt.Sprintf("Blueprint - %s", resp.Project.Name))

	b.WriteString(fmt.Sprintf("Root:         %s\n", resp.Project.RootPath))
	b.WriteString(fmt.Sprintf("Languages:    %s\n", strings.Join(resp.Project.Languages, ", ")))
	b.WriteString(fmt.Sprintf("Format:       %s\n", resp.Meta.Version))
	b.WriteString(fmt.Sprintf("Generation:   %s\n", resp.Meta.GenerationID))
	b.WriteString(fmt.Sprintf("Generated at: %s\n", resp.Meta.GeneratedAt.Format(time.RFC3339)))
	if resp.Meta.SemanticVersion != "" {
		b.WriteString(fmt.Sprintf("Semantic:     v%s\n", resp.Meta.SemanticVersion))
	}
	if resp.Source != "" {
		b.WriteString(fmt.Sprintf("Source:       %s\n", resp.Source))
	}
	b.WriteString(fmt.Sprintf("\nModules: %d  Symbols: %d\n", resp.Modules, resp.Symbols))
	b.WriteString(fmt.Sprintf("Edges:   %d imports, %d calls, %d type refs\n",
		resp.Edges.ModuleDeps, resp.Edges.SymbolCalls, resp.Edges.TypeRefs))
	if resp.Project.Semantic != nil && resp.Project.Semantic.Summary != "" {
		b.WriteString("\n" + resp.Project.Semantic.Summary + "\n")
	}
	return b.String()
}

func formatEntryPointsHuman(resp *query.EntryPointsResponse) string {
	var b strings.Builder
	header(&b, "Entry Points")

	if len(resp.EntryPoints) == 0 {
		b.WriteString("No entry point candidates.\n")
	}
	for i, c := range resp.EntryPoints {
		b.WriteString(fmt.Sprintf("%2d. %s (score %d)\n", i+1, c.ModuleID, c.Score))
		if len(c.Signals) > 0 {
			b.WriteString(fmt.Sprintf("    %s\n", strings.Join(c.Signals, ", ")))
		}
	}
	if resp.Heuristic {
		b.WriteString("\nRanked heuristically; pass a root explicitly to 'atlas tree' when in doubt.\n")
	}
	writeProvenance(&b, resp.Provenance)
	return b.String()
}

func formatTreeHuman(resp *query.DependencyTreeResponse) string {
	var b strings.Builder
	header(&b, "Dependency Tree")

	if !resp.Found {
		b.WriteString(fmt.Sprintf("Module not found: %s\n", resp.RootID))
		writeSuggestions(&b, resp.Suggestions)
		return b.String()
	}
	if resp.RootDetected {
		b.WriteString(fmt.Sprintf("Root (detected): %s\n\n", resp.RootID))
	}

	if resp.Tree != nil && resp.Tree.Root != nil {
		writeTreeNode(&b, resp.Tree.Root, "", true, true)
		b.WriteString(fmt.Sprintf("\n%d node(s)", resp.Tree.NodeCount))
		if resp.Tree.Truncated {
			b.WriteString(", truncated")
		}
		b.WriteString("\n")
	}
	if len(resp.Circular) > 0 {
		b.WriteString(fmt.Sprintf("Circular imports at: %s\n", strings.Join(resp.Circular, ", ")))
	}
	writeProvenance(&b, resp.Provenance)
	return b.String()
}

func writeTreeNode(b *strings.Builder, n *deptree.Node, prefix string, last, root bool) {
	line := n.ID
	if n.Lines > 0 {
		line += fmt.Sprintf(" (%d lines)", n.Lines)
	}
	if n.IsCircular {
		line += " [circular]"
	}

	childPrefix := prefix
	if root {
		b.WriteString(line + "\n")
	} else {
		branch := "├── "
		childPrefix += "│   "
		if last {
			branch = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix + branch + line + "\n")
	}
	for i, c := range n.Children {
		writeTreeNode(b, c, childPrefix, i == len(n.Children)-1, false)
	}
}

func formatArchHuman(resp *query.ArchitectureResponse) string {
	var b strings.Builder
	header(&b, "Architecture")

	if resp.View == nil {
		b.WriteString("No architecture computed.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Detection: %s\n\n", resp.DetectionMethod))

	b.WriteString("Layers:\n")
	for _, l := range resp.Layers {
		b.WriteString(fmt.Sprintf("  %-15s %4d modules %7d lines", l.Layer, l.ModuleCount, l.Lines))
		if len(l.Blocks) > 0 {
			b.WriteString("  [" + strings.Join(l.Blocks, ", ") + "]")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nBlocks:\n")
	for _, blk := range resp.Blocks {
		marker := ""
		if blk.Declared {
			marker = " (declared)"
		}
		b.WriteString(fmt.Sprintf("  %s%s - %s, %d files, %d lines\n", blk.Name, marker, blk.Layer, blk.FileCount, blk.Lines))
		if blk.Description != "" {
			b.WriteString(fmt.Sprintf("    %s\n", blk.Description))
		}
	}

	if len(resp.Edges) > 0 {
		b.WriteString("\nBlock dependencies:\n")
		for _, e := range resp.Edges {
			b.WriteString(fmt.Sprintf("  %s → %s (%d)\n", e.From, e.To, e.Strength))
		}
	}
	writeProvenance(&b, resp.Provenance)
	return b.String()
}

func formatStatsHuman(resp *query.StatisticsResponse) string {
	var b strings.Builder
	header(&b, "Statistics")

	s := resp.Statistics
	if s == nil {
		b.WriteString("No statistics available.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Modules: %d  Symbols: %d  Lines: %d\n", s.TotalModules, s.TotalSymbols, s.TotalLines))
	if s.DanglingEdges > 0 {
		b.WriteString(fmt.Sprintf("Dangling edges: %d\n", s.DanglingEdges))
	}
	b.WriteString(fmt.Sprintf("Semantic coverage: %.1f%% of modules, %.1f%% of symbols\n",
		s.SemanticCoverage*100, s.SymbolSemanticCoverage*100))

	writeDistribution(&b, "Languages", s.Languages)
	writeDistribution(&b, "Symbol kinds", s.SymbolKinds)
	writeDistribution(&b, "Layers", s.Layers)
	writeRanked(&b, "Most imported", s.MostImported)
	writeRanked(&b, "Most called", s.MostCalled)
	writeRanked(&b, "Largest modules", s.LargestModules)

	if !resp.Persisted {
		b.WriteString("\n(computed on load; the artifact carries no statistics)\n")
	}
	writeProvenance(&b, resp.Provenance)
	return b.String()
}

// writeDistribution prints counts largest first, ties by name.
func writeDistribution(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %-20s %d\n", k, counts[k]))
	}
}

func writeRanked(b *strings.Builder, title string, items []blueprint.RankedItem) {
	if len(items) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	for i, it := range items {
		b.WriteString(fmt.Sprintf("  %2d. %s (%d)\n", i+1, it.ID, it.Count))
	}
}

func formatRefsHuman(resp *query.ReferencesResponse) string {
	var b strings.Builder
	header(&b, fmt.Sprintf("References: %s", resp.SymbolID))

	if !resp.Found {
		b.WriteString("Symbol not found in the Blueprint.\n")
		writeSuggestions(&b, resp.Suggestions)
		if len(resp.Callers)+len(resp.Callees)+len(resp.TypeRefs) == 0 {
			return b.String()
		}
		b.WriteString("\nEdges still referencing it:\n")
	} else if resp.Symbol != nil {
		b.WriteString(fmt.Sprintf("%s %s in %s\n\n", resp.Symbol.Kind, resp.Symbol.Name, resp.ModuleID))
	}

	b.WriteString(fmt.Sprintf("Callers (%d):\n", len(resp.Callers)))
	for _, c := range resp.Callers {
		b.WriteString("  ← " + describeCall(c.Peer.ID, c.Peer.Resolved, c.Call.CallType) + "\n")
	}
	b.WriteString(fmt.Sprintf("Callees (%d):\n", len(resp.Callees)))
	for _, c := range resp.Callees {
		b.WriteString("  → " + describeCall(c.Peer.ID, c.Peer.Resolved, c.Call.CallType) + "\n")
	}
	if len(resp.TypeRefs) > 0 {
		b.WriteString(fmt.Sprintf("Type relations (%d):\n", len(resp.TypeRefs)))
		for _, t := range resp.TypeRefs {
			arrow := "←"
			if t.Outgoing {
				arrow = "→"
			}
			b.WriteString(fmt.Sprintf("  %s %s (%s)\n", arrow, t.Peer.ID, t.Ref.Direction))
		}
	}
	writeProvenance(&b, resp.Provenance)
	return b.String()
}

func describeCall(id string, resolved bool, callType string) string {
	s := id
	if callType != "" {
		s += " [" + callType + "]"
	}
	if !resolved {
		s += " (unresolved)"
	}
	return s
}

func formatCallGraphHuman(resp *query.CallGraphResponse) string {
	var b strings.Builder
	header(&b, fmt.Sprintf("Call Graph: %s (%s, depth %d)", resp.Root, resp.Direction, resp.Depth))

	if !resp.Found {
		b.WriteString("Symbol not found in the Blueprint.\n")
		writeSuggestions(&b, resp.Suggestions)
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Nodes (%d):\n", len(resp.Nodes)))
	for _, n := range resp.Nodes {
		indent := strings.Repeat("  ", n.Depth)
		line := fmt.Sprintf("  %s%s", indent, n.ID)
		if n.Kind != "" {
			line += fmt.Sprintf(" (%s)", n.Kind)
		}
		if !n.Resolved {
			line += " (unresolved)"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(fmt.Sprintf("Edges (%d):\n", len(resp.Edges)))
	for _, e := range resp.Edges {
		b.WriteString("  " + e.From + " → " + describeCall(e.To, true, e.CallType) + "\n")
	}
	writeProvenance(&b, resp.Provenance)
	return b.String()
}

func formatFlowHuman(resp *query.ScenarioFlowResponse) string {
	var b strings.Builder
	title := "Scenario Flow"
	if resp.Flow != nil && resp.Name != "" {
		title += ": " + resp.Name
	}
	header(&b, title)

	if resp.Flow == nil {
		return b.String()
	}
	if len(resp.MissingEntries) > 0 {
		b.WriteString(fmt.Sprintf("Unknown entries: %s\n\n", strings.Join(resp.MissingEntries, ", ")))
	}
	for _, n := range resp.Nodes {
		line := fmt.Sprintf("%s[%s] %s", strings.Repeat("  ", n.Depth), n.Role, n.Label)
		if n.External {
			line += " (external)"
		}
		b.WriteString(line + "\n")
	}
	if len(resp.Edges) > 0 {
		b.WriteString("\nSteps:\n")
		for _, e := range resp.Edges {
			b.WriteString(fmt.Sprintf("  %s → %s (%s)\n", e.From, e.To, e.Type))
		}
	}
	if resp.Truncated {
		b.WriteString("\n(truncated; raise --max-nodes or --max-depth for more)\n")
	}
	writeProvenance(&b, resp.Provenance)
	return b.String()
}

func formatGenerateHuman(resp *GenerateResponseCLI) string {
	var b strings.Builder
	header(&b, fmt.Sprintf("Generated Blueprint - %s", resp.Project.Name))

	b.WriteString(fmt.Sprintf("Artifact:   %s\n", resp.Artifact))
	if r := resp.Report; r != nil {
		b.WriteString(fmt.Sprintf("Generation: %s\n", r.GenerationID))
		b.WriteString(fmt.Sprintf("Modules:    %d\n", r.Modules))
		b.WriteString(fmt.Sprintf("Symbols:    %d\n", r.Symbols))
		if r.DroppedCalls > 0 || r.DroppedRefs > 0 {
			b.WriteString(fmt.Sprintf("Dropped:    %d calls, %d type refs (unresolvable)\n", r.DroppedCalls, r.DroppedRefs))
		}
		if r.AnnotationsRun > 0 {
			b.WriteString(fmt.Sprintf("Annotated:  %d of %d\n", r.Annotated, r.AnnotationsRun))
		}
		b.WriteString(fmt.Sprintf("Duration:   %s\n", r.Duration.Round(time.Millisecond)))
	}
	if resp.Snapshot != nil {
		b.WriteString(fmt.Sprintf("Snapshot:   %s (%s)\n", resp.Snapshot.ID, shortDigest(resp.Snapshot.Digest)))
	}
	for _, w := range resp.Warnings {
		b.WriteString(fmt.Sprintf("! %s\n", w))
	}
	return b.String()
}

func formatSnapshotsHuman(resp *SnapshotsResponseCLI) string {
	var b strings.Builder
	header(&b, "Snapshots")

	if len(resp.Snapshots) == 0 {
		b.WriteString("No snapshots recorded. Run 'atlas generate' first.\n")
		return b.String()
	}
	for _, s := range resp.Snapshots {
		b.WriteString(fmt.Sprintf("%s  %s  %-20s %5d modules %6d symbols  %s\n",
			shortID(s.ID), s.GeneratedAt.Format("2006-01-02 15:04"), s.Project, s.Modules, s.Symbols, formatBytes(s.SizeBytes)))
	}
	return b.String()
}

func formatSnapshotHuman(s *storage.Snapshot) string {
	var b strings.Builder
	header(&b, fmt.Sprintf("Snapshot %s", s.ID))

	b.WriteString(fmt.Sprintf("Project:   %s\n", s.Project))
	b.WriteString(fmt.Sprintf("Generated: %s\n", s.GeneratedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Recorded:  %s\n", s.RecordedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Format:    %s\n", s.FormatVersion))
	if s.SemanticVersion != "" {
		b.WriteString(fmt.Sprintf("Semantic:  v%s\n", s.SemanticVersion))
	}
	b.WriteString(fmt.Sprintf("Artifact:  %s (%s)\n", s.Path, formatBytes(s.SizeBytes)))
	b.WriteString(fmt.Sprintf("Digest:    %s\n", s.Digest))
	b.WriteString(fmt.Sprintf("Contents:  %d modules, %d symbols, %d edges\n", s.Modules, s.Symbols, s.Edges))
	return b.String()
}

func formatInitHuman(resp *InitResponseCLI) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("atlas workspace: %s\n", resp.Workspace))
	for _, p := range resp.Written {
		b.WriteString(fmt.Sprintf("  ✓ wrote %s\n", p))
	}
	for _, p := range resp.Skipped {
		b.WriteString(fmt.Sprintf("  - kept %s (use --force to overwrite)\n", p))
	}
	return b.String()
}

func formatConfigHuman(resp *ConfigShowResponse) string {
	var b strings.Builder
	b.WriteString("atlas Configuration\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")

	if resp.UsedDefaults {
		b.WriteString("Source: defaults (no config file found)\n")
	} else {
		b.WriteString(fmt.Sprintf("Source: %s\n", resp.ConfigPath))
	}
	if len(resp.EnvOverrides) > 0 {
		b.WriteString("Environment overrides: " + strings.Join(resp.EnvOverrides, ", ") + "\n")
	}
	b.WriteString("\n")

	for _, s := range resp.Settings {
		line := fmt.Sprintf("%s: %v", s.Key, s.Value)
		if s.Modified {
			line += fmt.Sprintf(" (default: %v)", s.Default)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// reportError prints err and, for engine errors, the suggested fixes.
func reportError(w io.Writer, err error) {
	var ae *errors.AtlasError
	if !stderrors.As(err, &ae) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Error: %v\n", ae)
	fixes := ae.SuggestedFixes
	if len(fixes) == 0 {
		fixes = errors.GetSuggestedFixes(ae.Code)
	}
	if len(fixes) > 0 {
		fmt.Fprintln(w, "Suggested fixes:")
		for _, fix := range fixes {
			fmt.Fprintf(w, "  - %s\n", fix.Description)
			if fix.Command != "" {
				fmt.Fprintf(w, "    $ %s\n", fix.Command)
			}
		}
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch errors.Code(err) {
	case errors.InvalidArgument, errors.InvalidFacts:
		return 2
	case errors.BlueprintMissing, errors.MalformedBlueprint, errors.IncompatibleVersion:
		return 3
	case errors.UnknownRoot, errors.UnknownSymbol:
		return 4
	case errors.Cancelled:
		return 130
	default:
		return 1
	}
}
