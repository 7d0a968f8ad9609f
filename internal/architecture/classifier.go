package architecture

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	"codeatlas/internal/blueprint"
)

// Rule assigns Layer to modules whose path matches one of Globs or whose
// path contains one of Tokens. Tokens are compared against the lowercase
// words of every directory and of the file stem.
type Rule struct {
	Layer  Layer    `toml:"layer" json:"layer"`
	Globs  []string `toml:"globs" json:"globs,omitempty"`
	Tokens []string `toml:"tokens" json:"tokens,omitempty"`
}

// DefaultRules is the stock rule table. Earlier rules win.
func DefaultRules() []Rule {
	return []Rule{
		{
			Layer: LayerData,
			Globs: []string{"**/*.sql", "**/*.prisma", "**/migrations/**", "**/*.graphql"},
			Tokens: []string{
				"model", "models", "entity", "entities", "repository", "repositories", "repo",
				"db", "database", "dao", "schema", "schemas", "persistence", "storage", "store", "stores",
			},
		},
		{
			Layer: LayerPresentation,
			Globs: []string{"**/*.{tsx,jsx,vue,svelte,html,css,scss}"},
			Tokens: []string{
				"ui", "view", "views", "page", "pages", "screen", "screens", "component", "components",
				"widget", "widgets", "controller", "controllers", "handler", "handlers", "route", "routes",
				"api", "cli", "cmd", "web", "templates", "layouts",
			},
		},
		{
			Layer: LayerBusiness,
			Tokens: []string{
				"service", "services", "domain", "usecase", "usecases", "core", "logic",
				"feature", "features", "business", "workflow", "workflows",
			},
		},
		{
			Layer: LayerCrossCutting,
			Tokens: []string{
				"util", "utils", "helper", "helpers", "common", "shared", "types", "constants",
				"middleware", "logging", "logger", "errors", "auth", "i18n",
			},
		},
		{
			Layer:  LayerInfrastructure,
			Globs:  []string{"**/Dockerfile", "**/*.{yml,yaml}", "**/Makefile"},
			Tokens: []string{"config", "configs", "infra", "deploy", "scripts", "build", "server", "platform"},
		},
	}
}

// Classifier assigns exactly one layer to every module.
type Classifier struct {
	rules   []Rule
	tokens  []map[string]bool
	Default Layer
}

// NewClassifier validates rules and builds a classifier. Nil rules select
// DefaultRules.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	c := &Classifier{rules: append([]Rule(nil), rules...), Default: LayerInfrastructure}
	for i, r := range c.rules {
		layer, ok := NormalizeLayer(string(r.Layer))
		if !ok {
			return nil, fmt.Errorf("rule %d: unknown layer %q", i, r.Layer)
		}
		c.rules[i].Layer = layer
		for _, g := range r.Globs {
			if !doublestar.ValidatePattern(g) {
				return nil, fmt.Errorf("rule %d: invalid glob %q", i, g)
			}
		}
		set := make(map[string]bool, len(r.Tokens))
		for _, t := range r.Tokens {
			set[strings.ToLower(t)] = true
		}
		c.tokens = append(c.tokens, set)
	}
	return c, nil
}

// MustClassifier is NewClassifier for rule tables known to be valid.
func MustClassifier(rules []Rule) *Classifier {
	c, err := NewClassifier(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the layer of m. An annotated layer wins when it names a
// known layer; otherwise the first matching rule decides, and modules that
// match nothing fall back to the default layer.
func (c *Classifier) Classify(m *blueprint.Module) Layer {
	if m.Semantic != nil && m.Semantic.ArchitectureLayer != "" {
		if l, ok := NormalizeLayer(m.Semantic.ArchitectureLayer); ok {
			return l
		}
	}
	return c.ClassifyPath(m.ID)
}

// ClassifyPath applies the rule table to a module path. Globs of every rule
// are tried before any token, so a file type outranks a directory name.
func (c *Classifier) ClassifyPath(id string) Layer {
	id = strings.TrimPrefix(id, "./")
	for _, r := range c.rules {
		for _, g := range r.Globs {
			if ok, _ := doublestar.Match(g, id); ok {
				return r.Layer
			}
		}
	}
	words := pathWords(id)
	for i, r := range c.rules {
		for _, w := range words {
			if c.tokens[i][w] {
				return r.Layer
			}
		}
	}
	return c.Default
}

// Distribution counts modules per layer.
func (c *Classifier) Distribution(v *blueprint.View) map[string]int {
	counts := make(map[string]int)
	for _, id := range v.ModuleIDs() {
		m, _ := v.Module(id)
		counts[string(c.Classify(m))]++
	}
	return counts
}

// pathWords splits a path into lowercase words: each directory name whole,
// plus the words of every segment split on punctuation and camel case.
// "src/userService.ts" yields src, userservice, user, service.
func pathWords(id string) []string {
	segments := strings.Split(id, "/")
	last := len(segments) - 1
	segments[last] = strings.TrimSuffix(segments[last], path.Ext(segments[last]))

	var words []string
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		words = append(words, strings.ToLower(seg))
		words = append(words, splitWords(seg)...)
	}
	return words
}

func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}
