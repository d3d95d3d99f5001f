package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper/fake"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(nil, 6000, time.Second)
}

func posting(source, url, title string) models.JobPosting {
	return models.JobPosting{Source: source, URL: url, Title: title, Company: "Acme"}
}

func TestCollect_DeduplicatesBySourceAndURL(t *testing.T) {
	dup := posting("indeed", "https://jobs/1", "python developer")
	srcA := fake.New("indeed", dup, posting("indeed", "https://jobs/2", "python developer"))
	srcB := fake.New("indeed-mirror", dup)

	c := New([]scraper.Source{srcA, srcB}, testLimiter(), nil, 3, time.Millisecond)

	jobs, err := c.Collect(context.Background(), models.SearchCriteria{Keywords: []string{"python"}})
	require.NoError(t, err)

	keys := map[string]int{}
	for _, j := range jobs {
		keys[j.Key()]++
	}
	assert.Equal(t, 1, keys[dup.Key()], "identical (source, URL) must collapse to one posting")
	assert.Len(t, jobs, 2)
}

func TestCollect_PartialSiteFailureIsNotFatal(t *testing.T) {
	broken := fake.New("indeed")
	broken.FailTimes = 100
	broken.Err = scraper.ErrSiteUnavailable
	healthy := fake.New("linkedin", posting("linkedin", "https://jobs/3", "python developer"))

	c := New([]scraper.Source{broken, healthy}, testLimiter(), nil, 2, time.Millisecond)

	jobs, err := c.Collect(context.Background(), models.SearchCriteria{Keywords: []string{"python"}})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, "linkedin", jobs[0].Source)
	assert.Equal(t, 2, broken.Calls(), "failed site must be retried up to max retries")
}

func TestCollect_AllSitesFailed(t *testing.T) {
	broken := fake.New("indeed")
	broken.FailTimes = 100
	broken.Err = scraper.ErrSiteTimeout

	c := New([]scraper.Source{broken}, testLimiter(), nil, 2, time.Millisecond)

	_, err := c.Collect(context.Background(), models.SearchCriteria{Keywords: []string{"python"}})
	assert.ErrorIs(t, err, ErrNoPostings)
}

func TestCollect_RetriesThenSucceeds(t *testing.T) {
	src := fake.New("indeed", posting("indeed", "https://jobs/4", "python developer"))
	src.FailTimes = 2
	src.Err = scraper.ErrSiteUnavailable

	base := 20 * time.Millisecond
	c := New([]scraper.Source{src}, testLimiter(), nil, 3, base)

	start := time.Now()
	jobs, err := c.Collect(context.Background(), models.SearchCriteria{Keywords: []string{"python"}})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, 3, src.Calls())
	// two failures: waits of base and 2*base before the third attempt
	assert.GreaterOrEqual(t, elapsed, 3*base)
}

func TestCollect_MaxJobsBound(t *testing.T) {
	src := fake.New("indeed",
		posting("indeed", "https://jobs/5", "python developer"),
		posting("indeed", "https://jobs/6", "python developer"),
		posting("indeed", "https://jobs/7", "python developer"),
	)
	c := New([]scraper.Source{src}, testLimiter(), nil, 3, time.Millisecond)

	jobs, err := c.Collect(context.Background(), models.SearchCriteria{
		Keywords: []string{"python"},
		MaxJobs:  2,
	})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestCollect_SiteSelection(t *testing.T) {
	indeed := fake.New("indeed", posting("indeed", "https://jobs/8", "python developer"))
	linkedin := fake.New("linkedin", posting("linkedin", "https://jobs/9", "python developer"))

	c := New([]scraper.Source{indeed, linkedin}, testLimiter(), nil, 3, time.Millisecond)

	jobs, err := c.Collect(context.Background(), models.SearchCriteria{
		Keywords: []string{"python"},
		Sites:    []string{"linkedin"},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "linkedin", jobs[0].Source)
	assert.Equal(t, 0, indeed.Calls())
}
