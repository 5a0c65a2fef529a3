package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

var testKeywords = Keywords{
	Region:       []string{"Ұлытау", "Улытау", "Жезказган", "Сатпаев қ."},
	Exclude:      []string{"Астана", "Almaty"},
	Law:          []string{"закон", "указ", "НПА"},
	Constitution: []string{"конституция", "ата заң"},
}

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestRelevantAndExcludedIgnoreCase(t *testing.T) {
	t.Parallel()

	c := New(testKeywords)
	assert.True(t, c.Relevant("Новости УЛЫТАУ сегодня"))
	assert.True(t, c.Relevant("в жезказгане открыли"))
	assert.False(t, c.Relevant("Караганда"))
	assert.True(t, c.Excluded("ALMATY weather"))
	assert.False(t, c.Excluded("Улытау"))
}

func TestCategoryPrecedence(t *testing.T) {
	t.Parallel()

	c := New(testKeywords)
	assert.Equal(t, news.CategoryConstitution, c.Category("Закон о поправках в Конституция"))
	assert.Equal(t, news.CategoryLaw, c.Category("Подписан УКАЗ"))
	assert.Equal(t, news.CategoryLaw, c.Category("новые нпа"))
	assert.Equal(t, news.CategoryNews, c.Category("Открыт новый парк"))
}

func TestRegionMentionsCountsEveryKeyword(t *testing.T) {
	t.Parallel()

	c := New(testKeywords)
	require.Equal(t, 3, c.RegionMentions("Улытау, улытау и Жезказган"))
	require.Zero(t, c.RegionMentions(""))
}

func TestScore(t *testing.T) {
	t.Parallel()

	c := New(testKeywords)
	fresh := now.Format(time.RFC3339)
	old := now.Add(-48 * time.Hour).Format(time.RFC3339)

	cases := []struct {
		name      string
		title     string
		summary   string
		category  news.Category
		published string
		want      int
	}{
		{"law in region fresh clamps", "Новый закон Улытау", "", news.CategoryLaw, fresh, 5},
		{"constitution always max", "что угодно", "", news.CategoryConstitution, "", 5},
		{"plain news base", "Погода", "Улытау", news.CategoryNews, "", 1},
		{"title match", "Улытау: новости", "", news.CategoryNews, old, 3},
		{"freshness only", "Погода", "Улытау", news.CategoryNews, fresh, 2},
		{"naive timestamp is utc", "Погода", "Улытау", news.CategoryNews, "2025-06-10 02:00:00", 2},
		{"garbage date no bonus", "Погода", "Улытау", news.CategoryNews, "вчера", 1},
		{"many mentions", "Погода", "Улытау Улытау Жезказган Жезказган", news.CategoryNews, old, 2},
		{"exactly three mentions", "Погода", "Улытау Улытау Жезказган", news.CategoryNews, old, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := c.Score(tc.title, tc.summary, tc.category, tc.published, now)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestScoreFreshWindowOption(t *testing.T) {
	t.Parallel()

	c := New(testKeywords, WithFreshWindow(time.Hour))
	twoHours := now.Add(-2 * time.Hour).Format(time.RFC3339)
	require.Equal(t, 1, c.Score("Погода", "Улытау", news.CategoryNews, twoHours, now))
}

func TestNewSkipsBlankKeywords(t *testing.T) {
	t.Parallel()

	c := New(Keywords{Region: []string{"", "  "}})
	require.False(t, c.Relevant("anything"))
}
