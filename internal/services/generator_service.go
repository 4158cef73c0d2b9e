// Package services – GeneratorService
//
// This file implements the weighted artist-string builder. Given the artist
// pool and a set of options it samples names (preselected names first,
// random fill without replacement) and formats them per the selected mode:
//
//	pure     – bare names
//	standard – "(name:W)" with W drawn from a clamped weight range
//	creative – names wrapped in 1–5 layers of brackets
//	nai      – "W::name ::" weight syntax
//
// An optional custom format string is applied last, substituting {name}.
// The randomness source is injectable so tests are deterministic.
package services

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// Generator modes.
const (
	ModePure     = "pure"
	ModeStandard = "standard"
	ModeCreative = "creative"
	ModeNAI      = "nai"
)

// Post-count filter modes.
const (
	FilterNone = "none"
	FilterGT   = "gt"
	FilterLT   = "lt"
)

// Bracket styles for creative mode.
const (
	BracketParen  = "paren"
	BracketCurly  = "curly"
	BracketSquare = "square"
)

// GenerateOptions controls one generation run. Zero values fall back to the
// defaults noted per field.
type GenerateOptions struct {
	Mode        string   // default standard
	Count       int      // clamped to [1,20]; default 3
	Preselected []string // taken first, before random sampling

	FilterMode      string // none|gt|lt
	FilterThreshold int

	BracketStyle string // creative mode; default paren
	NestLevels   int    // creative mode; 0 = random 1..5, else clamped to [1,5]

	WeightMin float64 // standard/nai; clamped to [0,2]
	WeightMax float64 // standard/nai; clamped to [0,2]

	CustomFormat string // optional "{name}" template applied last
}

// GeneratorService builds weighted artist prompt strings.
type GeneratorService struct {
	rng *rand.Rand
}

// NewGeneratorService constructs a GeneratorService. rng may be nil, in
// which case a time-seeded source is implied via the global rand functions.
func NewGeneratorService(rng *rand.Rand) *GeneratorService {
	return &GeneratorService{rng: rng}
}

// Generate samples and formats a prompt string from pool per opts.
func (g *GeneratorService) Generate(pool []domain.Artist, opts GenerateOptions) string {
	target := clampInt(opts.Count, 1, 20)
	if opts.Count == 0 {
		target = 3
	}

	names := opts.Preselected
	if len(names) > target {
		names = names[:target]
	}
	exclude := make(map[string]struct{}, len(names))
	for _, n := range names {
		exclude[n] = struct{}{}
	}

	if need := target - len(names); need > 0 {
		names = append(names, g.sample(pool, opts, need, exclude)...)
	}
	return g.format(names, opts)
}

// sample picks count random artists from the filtered pool, without
// replacement, excluding already-chosen names.
func (g *GeneratorService) sample(pool []domain.Artist, opts GenerateOptions, count int, exclude map[string]struct{}) []string {
	candidates := make([]string, 0, len(pool))
	for _, a := range pool {
		if _, dup := exclude[a.Name]; dup {
			continue
		}
		if !passesFilter(a, opts.FilterMode, opts.FilterThreshold) {
			continue
		}
		candidates = append(candidates, a.Name)
	}

	picked := make([]string, 0, count)
	for i := 0; i < count && len(candidates) > 0; i++ {
		j := g.intn(len(candidates))
		picked = append(picked, candidates[j])
		candidates = append(candidates[:j], candidates[j+1:]...)
	}
	return picked
}

// format renders the chosen names per the selected mode and the optional
// custom template.
func (g *GeneratorService) format(names []string, opts GenerateOptions) string {
	var items []string

	switch opts.Mode {
	case ModePure:
		items = names
	case ModeCreative:
		items = make([]string, len(names))
		for i, n := range names {
			layers := opts.NestLevels
			if layers == 0 {
				layers = g.intn(5) + 1
			}
			items[i] = wrapBrackets(n, opts.BracketStyle, clampInt(layers, 1, 5))
		}
	case ModeNAI:
		items = make([]string, len(names))
		for i, n := range names {
			items[i] = fmt.Sprintf("%.1f::%s ::", g.pickWeight(opts.WeightMin, opts.WeightMax), n)
		}
	default: // standard
		items = make([]string, len(names))
		for i, n := range names {
			items[i] = fmt.Sprintf("(%s:%.1f)", n, g.pickWeight(opts.WeightMin, opts.WeightMax))
		}
	}

	if opts.CustomFormat != "" {
		for i, item := range items {
			items[i] = strings.ReplaceAll(opts.CustomFormat, "{name}", item)
		}
	}
	return strings.Join(items, ", ")
}

// pickWeight draws a weight from [lo,hi] clamped to [0,2], rounded to one
// decimal.
func (g *GeneratorService) pickWeight(lo, hi float64) float64 {
	lo, hi = clampWeight(lo), clampWeight(hi)
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return lo
	}
	w := lo + g.float64()*(hi-lo)
	return float64(int(w*10+0.5)) / 10
}

func (g *GeneratorService) intn(n int) int {
	if g.rng != nil {
		return g.rng.Intn(n)
	}
	return rand.Intn(n)
}

func (g *GeneratorService) float64() float64 {
	if g.rng != nil {
		return g.rng.Float64()
	}
	return rand.Float64()
}

// passesFilter applies the post-count threshold filter.
func passesFilter(a domain.Artist, mode string, threshold int) bool {
	switch mode {
	case FilterGT:
		return a.PostCount > threshold
	case FilterLT:
		return a.PostCount < threshold
	default:
		return true
	}
}

// wrapBrackets wraps name in layers of the given bracket style.
func wrapBrackets(name, style string, layers int) string {
	opener, closer := "(", ")"
	switch style {
	case BracketCurly:
		opener, closer = "{", "}"
	case BracketSquare:
		opener, closer = "[", "]"
	}
	for i := 0; i < layers; i++ {
		name = opener + name + closer
	}
	return name
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampWeight(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 2 {
		return 2
	}
	return v
}
