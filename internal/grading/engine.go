package grading

import (
	"errors"
	"math"
	"unicode/utf8"
)

// ErrLengthMismatch is returned when the submitted answers and the key differ
// in length. Callers are expected to validate first; the grader refuses anyway.
var ErrLengthMismatch = errors.New("answer length mismatch")

// Band assigns Weight to every question index below Until (exclusive).
// The last band of a schedule may use Until <= 0 to mean "to the end".
type Band struct {
	Until  int
	Weight float64
}

// Schedule is an ordered list of bands covering question indices from 0.
type Schedule []Band

// DefaultSchedule: questions 1-45 are worth 1.1, 46-75 are worth 3.1, the rest 2.1.
var DefaultSchedule = Schedule{
	{Until: 45, Weight: 1.1},
	{Until: 75, Weight: 3.1},
	{Until: 0, Weight: 2.1},
}

// WeightAt returns the weight of the zero-based question index i.
func (s Schedule) WeightAt(i int) float64 {
	for _, b := range s {
		if b.Until <= 0 || i < b.Until {
			return b.Weight
		}
	}
	return 0
}

// Grader scores a whole answer sheet against a key.
type Grader interface {
	Score(submitted, key string) (float64, error)
	MaxScore(questions int) float64
}

type Option func(*config)

type config struct {
	schedule  Schedule
	precision int
}

func WithSchedule(s Schedule) Option { return func(c *config) { c.schedule = s } }

// WithPrecision sets the number of decimals the total is rounded to.
func WithPrecision(n int) Option { return func(c *config) { c.precision = n } }

type positionalGrader struct {
	schedule Schedule
	scale    float64
}

// NewPositionalGrader returns a grader that awards the schedule weight of each
// position where the submitted character equals the key character.
func NewPositionalGrader(opts ...Option) Grader {
	cfg := &config{
		schedule:  DefaultSchedule,
		precision: 2,
	}
	for _, o := range opts {
		o(cfg)
	}
	return &positionalGrader{
		schedule: cfg.schedule,
		scale:    math.Pow(10, float64(cfg.precision)),
	}
}

func (g *positionalGrader) Score(submitted, key string) (float64, error) {
	if utf8.RuneCountInString(submitted) != utf8.RuneCountInString(key) {
		return 0, ErrLengthMismatch
	}
	sub := []rune(submitted)
	score := 0.0
	for i, want := range []rune(key) {
		if sub[i] == want {
			score += g.schedule.WeightAt(i)
		}
	}
	return g.round(score), nil
}

func (g *positionalGrader) MaxScore(questions int) float64 {
	total := 0.0
	for i := 0; i < questions; i++ {
		total += g.schedule.WeightAt(i)
	}
	return g.round(total)
}

func (g *positionalGrader) round(v float64) float64 {
	return math.Round(v*g.scale) / g.scale
}

var defaultGrader = NewPositionalGrader()

// Score grades submitted against key with the default schedule.
func Score(submitted, key string) (float64, error) {
	return defaultGrader.Score(submitted, key)
}

// MaxScore is the best achievable score for a key of n questions.
func MaxScore(n int) float64 {
	return defaultGrader.MaxScore(n)
}
