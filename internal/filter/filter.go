package filter

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// Relevance scoring weights. Skill overlap dominates; location and
// experience fit nudge the score.
const (
	skillWeight      = 6.0
	locationWeight   = 2.0
	experienceWeight = 2.0
	maxScore         = 10.0
)

var experienceRegex = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(\+|plus)?\s*years?\b`)

// ScoredPosting pairs a posting with its relevance score.
type ScoredPosting struct {
	Posting models.JobPosting
	Score   float64
}

// Filter scores postings against a profile with a deterministic rule and
// splits them at an acceptance threshold. Pure: no network, no state.
type Filter struct {
	threshold float64
}

func New(threshold float64) *Filter {
	return &Filter{threshold: threshold}
}

// Split scores every posting and partitions them. Accepted is ordered by
// descending score (ties broken by title) so the orchestrator composes the
// best matches first.
func (f *Filter) Split(postings []models.JobPosting, profile models.UserProfile) (accepted, rejected []ScoredPosting) {
	for _, p := range postings {
		sp := ScoredPosting{Posting: p, Score: Score(p, profile)}
		if sp.Score >= f.threshold {
			accepted = append(accepted, sp)
		} else {
			rejected = append(rejected, sp)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		if accepted[i].Score != accepted[j].Score {
			return accepted[i].Score > accepted[j].Score
		}
		return accepted[i].Posting.Title < accepted[j].Posting.Title
	})
	return accepted, rejected
}

// Score rates one posting on a 0..10 scale: skill-overlap ratio, location
// match, experience fit.
func Score(job models.JobPosting, profile models.UserProfile) float64 {
	text := normalizeText(job.Title + " " + job.Description + " " + strings.Join(job.Requirements, " "))

	score := skillWeight * skillOverlap(text, profile.Skills)

	if locationMatches(job, profile) {
		score += locationWeight
	}

	if experienceFits(text, profile.ExperienceYears) {
		score += experienceWeight
	}

	if score > maxScore {
		return maxScore
	}
	return score
}

// skillOverlap returns the fraction of profile skills mentioned in the
// posting text.
func skillOverlap(text string, skills []string) float64 {
	if len(skills) == 0 {
		return 0
	}
	matched := mapset.NewSet[string]()
	for _, skill := range skills {
		s := normalizeText(skill)
		if s != "" && strings.Contains(text, s) {
			matched.Add(s)
		}
	}
	return float64(matched.Cardinality()) / float64(len(skills))
}

func locationMatches(job models.JobPosting, profile models.UserProfile) bool {
	jobLoc := normalizeText(job.Location)
	if job.RemoteOption || strings.Contains(jobLoc, "remote") {
		return true
	}
	profLoc := normalizeText(profile.Location)
	if profLoc == "" || jobLoc == "" {
		return false
	}
	return strings.Contains(jobLoc, profLoc) || strings.Contains(profLoc, jobLoc)
}

// experienceFits checks the highest year requirement mentioned in the text
// against the profile. A posting that demands more years than the applicant
// has is not a fit; no mention counts as a fit.
func experienceFits(text string, years int) bool {
	matches := experienceRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return true
	}
	required := 0
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil && n > required {
			required = n
		}
	}
	return years >= required
}

// normalizeText strips diacritics and lowercases, so "Cần Thơ" and
// "can tho" compare equal.
func normalizeText(str string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, str)
	return strings.ToLower(result)
}
